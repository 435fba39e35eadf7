package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/repository"
	"github.com/iliyamo/sportsclub/internal/utils"
)

// UserAccounts is the part of the user repository auth needs.
type UserAccounts interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

type RefreshTokens interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthSettings carries the token and hashing parameters from config.
type AuthSettings struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    AuthSettings
	Users  UserAccounts
	Tokens RefreshTokens
	Cipher *utils.Cipher
	Log    *zap.Logger
}

func NewAuthHandler(cfg AuthSettings, u UserAccounts, t RefreshTokens, cipher *utils.Cipher, log *zap.Logger) *AuthHandler {
	if u == nil || t == nil || cipher == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Cipher: cipher, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Role      string `json:"role" validate:"omitempty,oneof=student coach"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	NRIC      string `json:"nric" validate:"omitempty,max=20"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func newUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Role: u.Role, FirstName: u.FirstName, LastName: u.LastName}
}

// issue signs an access token and stores a fresh refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    newUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// Register creates a student or coach and returns tokens immediately. Exco
// accounts are promoted by an operator.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if msg, ok := validate(c, &req); !ok {
		return badRequest(c, msg)
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleStudent
	}

	var sealed string
	if nric := strings.TrimSpace(req.NRIC); nric != "" {
		s, err := h.Cipher.Encrypt(nric)
		if err != nil {
			h.Log.Error("seal nric failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
		sealed = s
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Email:         req.Email,
		Password:      req.Password,
		Role:          role,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		NRICEncrypted: sealed,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		h.Log.Error("create user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	resp, err := h.issue(ctx, model.User{
		ID: uid, Email: req.Email, Role: role,
		FirstName: req.FirstName, LastName: req.LastName,
	})
	if err != nil {
		h.Log.Error("issue tokens failed", zap.Uint64("user_id", uid), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	h.Log.Info("user registered", zap.Uint64("user_id", uid), zap.String("role", role))
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.Log.Error("load user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		h.Log.Error("issue tokens failed", zap.Uint64("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates by hash, revokes the old token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		h.Log.Warn("revoke refresh failed", zap.Uint64("user_id", userID), zap.Error(err))
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		h.Log.Error("issue tokens failed", zap.Uint64("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes one refresh token when the body names it, otherwise every
// refresh token of the bearer.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid uint64
	if raw, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer "); ok {
		if id, _, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(raw)); err == nil {
			uid = id
		}
	}

	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now().UTC()); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	if uid != 0 {
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// Me returns the caller's profile. The NRIC is unsealed only here.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := echo.Map{
		"user": newUserPart(u),
	}
	if u.NRICEncrypted != "" {
		nric, err := h.Cipher.Decrypt(u.NRICEncrypted)
		if err != nil {
			h.Log.Error("unseal nric failed", zap.Uint64("user_id", uid), zap.Error(err))
		} else {
			out["nric"] = nric
		}
	}
	return c.JSON(http.StatusOK, out)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/sportsclub/internal/model"
)

// ErrRefreshInvalid covers unknown, revoked and expired refresh tokens.
var ErrRefreshInvalid = errors.New("refresh token invalid")

// TokenRepo persists refresh token hashes. The raw token never reaches
// the database.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// Lookup returns the stored token row for a hash.
func (r *TokenRepo) Lookup(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var (
		t       model.RefreshToken
		revoked sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrRefreshInvalid
	}
	if err != nil {
		return t, err
	}
	if revoked.Valid {
		v := revoked.Time
		t.RevokedAt = &v
	}
	return t, nil
}

// ValidateRefresh returns the owner of a live token.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error) {
	t, err := r.Lookup(ctx, tokenHash)
	if err != nil {
		return 0, err
	}
	if t.RevokedAt != nil || !now.Before(t.ExpiresAt) {
		return 0, ErrRefreshInvalid
	}
	return t.UserID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// PurgeExpired deletes rows that expired before cutoff.
func (r *TokenRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

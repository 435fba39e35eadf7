// Package handler holds the HTTP handlers. Handlers parse and validate the
// request, call a service with a bounded context and translate the result
// into JSON.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportsclub/internal/middleware"
)

// requestTimeout bounds every storage call made on behalf of a request.
const requestTimeout = 5 * time.Second

// Validator adapts validator/v10 to echo.Validator.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// bindAndValidate decodes the body into req and runs the struct rules. The
// returned message is safe to show to the client.
func bindAndValidate(c echo.Context, req any) (string, bool) {
	if err := c.Bind(req); err != nil {
		return "invalid body", false
	}
	return validate(c, req)
}

func validate(c echo.Context, req any) (string, bool) {
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fe.Field() + " failed " + fe.Tag(), false
		}
		return err.Error(), false
	}
	return "", true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": msg})
}

// getUserID returns the caller's id set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errors.New("invalid user_id in context")
	}
	return id, nil
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

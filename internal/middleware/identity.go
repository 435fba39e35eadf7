package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
)

// UserID returns the authenticated user's id. ok is false for anonymous
// requests.
func UserID(c echo.Context) (uint64, bool) {
	switch t := c.Get(KeyUserID).(type) {
	case uint64:
		return t, t != 0
	case int64:
		return uint64(t), t > 0
	case float64:
		return uint64(t), t > 0
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil && n != 0
	}
	return 0, false
}

func Role(c echo.Context) string {
	r, _ := c.Get(KeyRole).(string)
	return r
}

// userKey identifies the caller in rate limit keys.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

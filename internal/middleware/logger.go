package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger writes one line per request. 5xx responses log at error,
// 4xx at warn, the rest at info.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			res := c.Response()
			lvl := zapcore.InfoLevel
			switch {
			case res.Status >= 500:
				lvl = zapcore.ErrorLevel
			case res.Status >= 400:
				lvl = zapcore.WarnLevel
			}
			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", res.Status),
				zap.Int64("bytes", res.Size),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if id, ok := UserID(c); ok {
				fields = append(fields, zap.Uint64("user_id", id))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			log.Check(lvl, "request").Write(fields...)
			return nil
		}
	}
}

// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportsclub/internal/handler"
	"github.com/iliyamo/sportsclub/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth mounts /v1/auth and the protected /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// logout accepts either a bearer token or a refresh token, so it sits
	// outside JWTAuth
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

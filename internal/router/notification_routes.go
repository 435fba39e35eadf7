package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportsclub/internal/handler"
	"github.com/iliyamo/sportsclub/internal/middleware"
)

// RegisterNotifications mounts the caller's inbox. Any role may read its own.
func RegisterNotifications(e *echo.Echo, h *handler.NotificationHandler, jwtSecret string) {
	g := e.Group("/v1/notifications", middleware.JWTAuth(jwtSecret))
	g.GET("", h.List)
	g.POST("/:id/read", h.MarkRead)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportsclub/internal/handler"
	"github.com/iliyamo/sportsclub/internal/middleware"
	"github.com/iliyamo/sportsclub/internal/model"
)

// RegisterBookings mounts the booking lifecycle. Coaches request and check
// slots, exco members decide. Availability is never cached.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1/bookings", middleware.JWTAuth(jwtSecret))

	coach := middleware.RequireRole(model.RoleCoach)
	exco := middleware.RequireRole(model.RoleExco)

	g.POST("/check-availability", h.CheckAvailability, coach)
	g.POST("", h.Create, coach)
	g.GET("/mine", h.ListMine, coach)
	g.GET("/pending", h.ListPending, exco)
	g.PUT("/:id/approve", h.Decide, exco)

	a := e.Group("/v1/attendance", middleware.JWTAuth(jwtSecret))
	a.GET("/sessions", h.Sessions, middleware.RequireRole(model.RoleCoach, model.RoleExco))
	a.GET("/schedule", h.Schedule, coach)
}

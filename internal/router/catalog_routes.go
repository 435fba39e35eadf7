package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportsclub/internal/handler"
	"github.com/iliyamo/sportsclub/internal/middleware"
	"github.com/iliyamo/sportsclub/internal/model"
)

// CatalogMiddleware holds the Redis-backed middleware for the read-mostly
// facility and equipment endpoints. Either may be nil.
type CatalogMiddleware struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func (m CatalogMiddleware) group() []echo.MiddlewareFunc {
	if m.RateLimit == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m.RateLimit}
}

func (m CatalogMiddleware) cached() []echo.MiddlewareFunc {
	if m.Cache == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m.Cache}
}

// RegisterCatalog mounts facilities and equipment. Listings go through the
// response cache; writes and damage reports do not.
func RegisterCatalog(e *echo.Echo, f *handler.FacilityHandler, eq *handler.EquipmentHandler, jwtSecret string, mw CatalogMiddleware) {
	exco := middleware.RequireRole(model.RoleExco)
	coach := middleware.RequireRole(model.RoleCoach)

	fg := e.Group("/v1/facilities", append([]echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}, mw.group()...)...)
	fg.GET("", f.List, mw.cached()...)
	fg.PUT("/:id/status", f.UpdateStatus, exco)

	eg := e.Group("/v1/equipment", append([]echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}, mw.group()...)...)
	eg.GET("", eq.List, mw.cached()...)
	eg.POST("/report-damage", eq.ReportDamage, coach)
	eg.GET("/damage-reports", eq.ListReports, exco)
	eg.POST("/damage-reports/:id/resolve", eq.ResolveDamage, exco)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/repository"
	"github.com/iliyamo/sportsclub/internal/service"
)

// errorBody maps a service or repository error to a status and JSON body.
// Unknown errors become a generic 500.
func errorBody(err error) (int, echo.Map) {
	var (
		verr  *service.ValidationError
		bconf *repository.BookingConflictError
		sconf *repository.ScheduleConflictError
		stock *repository.StockError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, echo.Map{"error": verr.Code, "message": verr.Message}
	case errors.As(err, &bconf):
		return http.StatusConflict, echo.Map{
			"error": "conflict", "reason": service.ReasonBookingConflict, "conflict_id": bconf.BookingID,
		}
	case errors.As(err, &sconf):
		return http.StatusConflict, echo.Map{
			"error": "conflict", "reason": service.ReasonScheduleConflict, "conflict_id": sconf.ScheduleID,
		}
	case errors.As(err, &stock):
		return http.StatusConflict, echo.Map{
			"error":        "insufficient_stock",
			"equipment_id": stock.EquipmentID,
			"name":         stock.Name,
			"requested":    stock.Requested,
			"available":    stock.Available,
			"message":      stock.Error(),
		}
	case errors.Is(err, model.ErrAlreadyDecided):
		return http.StatusConflict, echo.Map{"error": "already_decided"}
	case errors.Is(err, repository.ErrAlreadyResolved):
		return http.StatusConflict, echo.Map{"error": "already_resolved"}
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, echo.Map{"error": "conflict"}
	case errors.Is(err, repository.ErrFacilityNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrEquipmentNotFound),
		errors.Is(err, repository.ErrReportNotFound),
		errors.Is(err, repository.ErrScheduleNotFound),
		errors.Is(err, repository.ErrNotificationNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, echo.Map{"error": "not found"}
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden, echo.Map{"error": "forbidden"}
	}
	return http.StatusInternalServerError, echo.Map{"error": "internal error"}
}

// respondError writes the mapped error. 5xx responses are logged with the
// underlying cause, which is never sent to the client.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.JSON(status, body)
}

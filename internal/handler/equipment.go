package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/service"
)

type EquipmentHandler struct {
	Equipment *service.EquipmentService
	Log       *zap.Logger
}

func NewEquipmentHandler(svc *service.EquipmentService, log *zap.Logger) *EquipmentHandler {
	if svc == nil {
		panic("nil service passed to NewEquipmentHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EquipmentHandler{Equipment: svc, Log: log}
}

// List answers GET /v1/equipment. ?available=true hides pools with nothing
// left to lend.
func (h *EquipmentHandler) List(c echo.Context) error {
	onlyAvailable, _ := strconv.ParseBool(c.QueryParam("available"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Equipment.List(ctx, onlyAvailable)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]equipmentView, len(items))
	for i, e := range items {
		out[i] = newEquipmentView(e)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ReportDamage answers POST /v1/equipment/report-damage.
func (h *EquipmentHandler) ReportDamage(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req damageReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	d, err := h.Equipment.ReportDamage(ctx, service.DamageInput{
		EquipmentID: req.EquipmentID,
		ReporterID:  uid,
		BookingID:   req.BookingID,
		Quantity:    req.Quantity,
		Description: req.Description,
		Severity:    model.DamageSeverity(req.Severity),
		Evidence:    req.Evidence,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, newDamageView(d))
}

// ResolveDamage answers POST /v1/equipment/damage-reports/:id/resolve.
func (h *EquipmentHandler) ResolveDamage(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid report id")
	}
	// the body is optional
	var req resolveReq
	if c.Request().ContentLength != 0 {
		if msg, ok := bindAndValidate(c, &req); !ok {
			return badRequest(c, msg)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	d, err := h.Equipment.ResolveDamage(ctx, id, uid, model.Resolution(req.Resolution))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newDamageView(d))
}

// ListReports answers GET /v1/equipment/damage-reports?status=.
func (h *EquipmentHandler) ListReports(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Equipment.ListReports(ctx, model.DamageStatus(c.QueryParam("status")))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]damageView, len(items))
	for i, d := range items {
		out[i] = newDamageView(d)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

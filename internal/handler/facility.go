package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/model"
)

// FacilityStore is the part of the facility repository the handler needs.
type FacilityStore interface {
	List(ctx context.Context) ([]model.Facility, error)
	UpdateStatus(ctx context.Context, id uint64, status model.FacilityStatus) (model.Facility, error)
}

type FacilityHandler struct {
	Facilities FacilityStore
	Log        *zap.Logger
	// OnChange runs after a status update so cached catalogue responses
	// can be dropped. Nil means nothing to purge.
	OnChange func(ctx context.Context) error
}

func NewFacilityHandler(f FacilityStore, log *zap.Logger) *FacilityHandler {
	if f == nil {
		panic("nil repository passed to NewFacilityHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FacilityHandler{Facilities: f, Log: log}
}

// List answers GET /v1/facilities.
func (h *FacilityHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Facilities.List(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]facilityView, len(items))
	for i, f := range items {
		out[i] = newFacilityView(f)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// UpdateStatus answers PUT /v1/facilities/:id/status. Setting maintenance
// makes every slot on the facility unavailable.
func (h *FacilityHandler) UpdateStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid facility id")
	}
	var req facilityStatusReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	f, err := h.Facilities.UpdateStatus(ctx, id, model.FacilityStatus(req.Status))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.Log.Info("facility status changed", zap.Uint64("facility_id", f.ID), zap.String("status", string(f.Status)))
	if h.OnChange != nil {
		if err := h.OnChange(ctx); err != nil {
			h.Log.Warn("cache purge failed", zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, newFacilityView(f))
}

package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/middleware"
	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/service"
)

// BookingHandler serves the coach and exco booking endpoints.
type BookingHandler struct {
	Checker  *service.AvailabilityChecker
	Bookings *service.BookingService
	Log      *zap.Logger
}

func NewBookingHandler(checker *service.AvailabilityChecker, bookings *service.BookingService, log *zap.Logger) *BookingHandler {
	if checker == nil || bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Checker: checker, Bookings: bookings, Log: log}
}

// CheckAvailability answers POST /v1/bookings/check-availability. It never
// writes.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	var req availabilityReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Checker.Check(ctx, req.FacilityID, slotInputs(req.Slots))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newAvailabilityView(req.FacilityID, res))
}

// Create answers POST /v1/bookings with one pending booking per slot. When
// a later slot fails, the error body lists the ids already created.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}
	lines := make([]model.EquipmentLine, len(req.Equipment))
	for i, e := range req.Equipment {
		lines[i] = model.EquipmentLine{EquipmentID: e.EquipmentID, Quantity: e.Quantity, Reason: e.Reason}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	created, err := h.Bookings.Create(ctx, service.CreateBookingInput{
		FacilityID:  req.FacilityID,
		RequesterID: uid,
		Slots:       slotInputs(req.Slots),
		Reason:      req.Reason,
		Notes:       req.Notes,
		Equipment:   lines,
	})
	if err != nil {
		status, body := errorBody(err)
		if len(created) > 0 {
			ids := make([]uint64, len(created))
			for i, b := range created {
				ids[i] = b.ID
			}
			body["created"] = ids
		}
		if status >= http.StatusInternalServerError {
			h.Log.Error("create booking failed", zap.Uint64("requester_id", uid), zap.Error(err))
		}
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusCreated, echo.Map{"bookings": newBookingViews(created)})
}

// ListPending answers GET /v1/bookings/pending for exco members.
func (h *BookingHandler) ListPending(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Bookings.ListPending(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": newBookingViews(items)})
}

// ListMine answers GET /v1/bookings/mine?page=&limit=.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, total, err := h.Bookings.ListMine(ctx, uid, page, limit)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": newBookingViews(items),
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Decide answers PUT /v1/bookings/:id/approve with {"approve": bool}.
func (h *BookingHandler) Decide(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req decideReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Bookings.Decide(ctx, id, uid, *req.Approve)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking":          newBookingView(res.Booking),
		"schedule_created": res.ScheduleCreated,
		"schedule":         newScheduleView(res.Schedule),
	})
}

// Sessions answers GET /v1/attendance/sessions. Coaches see their own
// sessions and exco members see every coach's.
func (h *BookingHandler) Sessions(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if middleware.Role(c) == model.RoleExco {
		uid = 0
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Bookings.Sessions(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": newBookingViews(items)})
}

// Schedule answers GET /v1/attendance/schedule with the caller's training
// sessions.
func (h *BookingHandler) Schedule(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Bookings.TrainingSessions(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]*scheduleView, 0, len(items))
	for i := range items {
		out = append(out, newScheduleView(&items[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

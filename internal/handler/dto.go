package handler

import (
	"time"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/service"
	"github.com/iliyamo/sportsclub/internal/slot"
)

// ----- requests -----

// slotReq carries no validation tags: malformed slots are reported per slot
// by the availability check instead of failing the whole batch.
type slotReq struct {
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (s slotReq) input() service.SlotInput {
	return service.SlotInput{Date: s.Date, StartTime: s.StartTime, EndTime: s.EndTime, DurationMinutes: s.DurationMinutes}
}

func slotInputs(in []slotReq) []service.SlotInput {
	out := make([]service.SlotInput, len(in))
	for i, s := range in {
		out[i] = s.input()
	}
	return out
}

type equipmentReq struct {
	EquipmentID uint64 `json:"equipment_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
	Reason      string `json:"reason"`
}

type availabilityReq struct {
	FacilityID uint64    `json:"facility_id" validate:"required"`
	Slots      []slotReq `json:"slots" validate:"required,min=1"`
}

type createBookingReq struct {
	FacilityID uint64         `json:"facility_id" validate:"required"`
	Slots      []slotReq      `json:"slots" validate:"required,min=1"`
	Reason     string         `json:"reason" validate:"required"`
	Notes      string         `json:"notes"`
	Equipment  []equipmentReq `json:"equipment" validate:"dive"`
}

type decideReq struct {
	Approve *bool `json:"approve" validate:"required"`
}

type damageReq struct {
	EquipmentID uint64  `json:"equipment_id" validate:"required"`
	BookingID   *uint64 `json:"booking_id"`
	Quantity    int     `json:"quantity" validate:"required,min=1"`
	Description string  `json:"description" validate:"required"`
	Severity    string  `json:"severity" validate:"omitempty,oneof=low medium high"`
	Evidence    string  `json:"evidence"`
}

type resolveReq struct {
	Resolution string `json:"resolution" validate:"omitempty,oneof=repaired written_off"`
}

type facilityStatusReq struct {
	Status string `json:"status" validate:"required,oneof=available booked maintenance"`
}

// ----- responses -----

type slotView struct {
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Available  bool   `json:"available"`
	Reason     string `json:"reason,omitempty"`
	ConflictID uint64 `json:"conflict_id,omitempty"`
}

type availabilityView struct {
	FacilityID uint64     `json:"facility_id"`
	Available  bool       `json:"available"`
	Slots      []slotView `json:"slots"`
}

func newAvailabilityView(facilityID uint64, a service.Availability) availabilityView {
	v := availabilityView{FacilityID: facilityID, Available: a.Available, Slots: make([]slotView, len(a.Slots))}
	for i, s := range a.Slots {
		v.Slots[i] = slotView{
			Date: s.Date, StartTime: s.StartTime, EndTime: s.EndTime,
			Available: s.Available, Reason: s.Reason, ConflictID: s.ConflictID,
		}
	}
	return v
}

// bookingView renders times both as UTC instants and as civil club time.
type bookingView struct {
	ID            uint64                `json:"id"`
	FacilityID    uint64                `json:"facility_id"`
	RequesterID   uint64                `json:"requester_id"`
	RequesterName string                `json:"requester_name"`
	Date          string                `json:"date"`
	StartTime     string                `json:"start_time"`
	EndTime       string                `json:"end_time"`
	StartAt       time.Time             `json:"start_at"`
	EndAt         time.Time             `json:"end_at"`
	Status        model.BookingStatus   `json:"status"`
	Reason        string                `json:"reason"`
	Notes         string                `json:"notes,omitempty"`
	ApproverID    *uint64               `json:"approver_id,omitempty"`
	ApprovedAt    *time.Time            `json:"approved_at,omitempty"`
	Equipment     []model.EquipmentLine `json:"equipment"`
	CreatedAt     time.Time             `json:"created_at"`
}

func newBookingView(b model.Booking) bookingView {
	iv := slot.Interval{Start: b.StartAt, End: b.EndAt}
	eq := b.Equipment
	if eq == nil {
		eq = []model.EquipmentLine{}
	}
	return bookingView{
		ID:            b.ID,
		FacilityID:    b.FacilityID,
		RequesterID:   b.RequesterID,
		RequesterName: b.RequesterName,
		Date:          iv.Date(),
		StartTime:     iv.StartClock(),
		EndTime:       iv.EndClock(),
		StartAt:       b.StartAt.UTC(),
		EndAt:         b.EndAt.UTC(),
		Status:        b.Status,
		Reason:        b.Reason,
		Notes:         b.Notes,
		ApproverID:    b.ApproverID,
		ApprovedAt:    b.ApprovedAt,
		Equipment:     eq,
		CreatedAt:     b.CreatedAt,
	}
}

func newBookingViews(bs []model.Booking) []bookingView {
	out := make([]bookingView, len(bs))
	for i, b := range bs {
		out[i] = newBookingView(b)
	}
	return out
}

type scheduleView struct {
	ID          uint64 `json:"id"`
	OwnerID     uint64 `json:"owner_id"`
	FacilityID  uint64 `json:"facility_id"`
	BookingID   uint64 `json:"booking_id"`
	SessionDate string `json:"session_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	SessionType string `json:"session_type"`
	Status      string `json:"status"`
}

func newScheduleView(s *model.Schedule) *scheduleView {
	if s == nil {
		return nil
	}
	return &scheduleView{
		ID: s.ID, OwnerID: s.OwnerID, FacilityID: s.FacilityID, BookingID: s.BookingID,
		SessionDate: s.SessionDate, StartTime: s.StartTime, EndTime: s.EndTime,
		SessionType: s.SessionType, Status: s.Status,
	}
}

type facilityView struct {
	ID       uint64               `json:"id"`
	Name     string               `json:"name"`
	Type     string               `json:"type"`
	Location string               `json:"location"`
	Capacity int                  `json:"capacity"`
	Status   model.FacilityStatus `json:"status"`
}

func newFacilityView(f model.Facility) facilityView {
	return facilityView{ID: f.ID, Name: f.Name, Type: f.Type, Location: f.Location, Capacity: f.Capacity, Status: f.Status}
}

type equipmentView struct {
	ID                uint64 `json:"id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	QuantityTotal     int    `json:"quantity_total"`
	QuantityAvailable int    `json:"quantity_available"`
	QuantityDamaged   int    `json:"quantity_damaged"`
	IsActive          bool   `json:"is_active"`
}

func newEquipmentView(e model.Equipment) equipmentView {
	return equipmentView{
		ID: e.ID, Name: e.Name, Category: e.Category,
		QuantityTotal: e.QuantityTotal, QuantityAvailable: e.QuantityAvailable, QuantityDamaged: e.QuantityDamaged,
		IsActive: e.IsActive,
	}
}

type damageView struct {
	ID          uint64               `json:"id"`
	EquipmentID uint64               `json:"equipment_id"`
	ReporterID  uint64               `json:"reporter_id"`
	BookingID   *uint64              `json:"booking_id,omitempty"`
	Quantity    int                  `json:"quantity_damaged"`
	Description string               `json:"description"`
	Severity    model.DamageSeverity `json:"severity"`
	Evidence    string               `json:"evidence,omitempty"`
	Status      model.DamageStatus   `json:"status"`
	ResolvedBy  *uint64              `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time           `json:"resolved_at,omitempty"`
	Resolution  *model.Resolution    `json:"resolution,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

func newDamageView(d model.DamageReport) damageView {
	return damageView{
		ID: d.ID, EquipmentID: d.EquipmentID, ReporterID: d.ReporterID, BookingID: d.BookingID,
		Quantity: d.QuantityDamaged, Description: d.Description, Severity: d.Severity, Evidence: d.Evidence,
		Status: d.Status, ResolvedBy: d.ResolvedBy, ResolvedAt: d.ResolvedAt, Resolution: d.Resolution,
		CreatedAt: d.CreatedAt,
	}
}

type notificationView struct {
	ID        uint64         `json:"id"`
	Kind      string         `json:"kind"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

func newNotificationView(n model.Notification) notificationView {
	return notificationView{
		ID: n.ID, Kind: n.Kind, Title: n.Title, Message: n.Message, Meta: n.Meta, Read: n.Read, CreatedAt: n.CreatedAt,
	}
}

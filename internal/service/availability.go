package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/slot"
)

// Per-slot reasons reported by Check.
const (
	ReasonMaintenance      = "facility_in_maintenance"
	ReasonBookingConflict  = "booking_conflict"
	ReasonScheduleConflict = "schedule_conflict"
)

// SlotInput is one requested slot in civil time. DurationMinutes is used
// only when EndTime is empty.
type SlotInput struct {
	Date            string
	StartTime       string
	EndTime         string
	DurationMinutes int
}

// Interval parses the slot in the club timezone.
func (in SlotInput) Interval() (slot.Interval, error) {
	if in.EndTime == "" && in.DurationMinutes != 0 {
		return slot.ParseDuration(in.Date, in.StartTime, in.DurationMinutes)
	}
	return slot.Parse(in.Date, in.StartTime, in.EndTime)
}

type SlotResult struct {
	Date       string
	StartTime  string
	EndTime    string
	Available  bool
	Reason     string
	ConflictID uint64
}

// Availability is the answer for a whole batch. Available is true only when
// every slot is.
type Availability struct {
	Available bool
	Slots     []SlotResult
}

// AvailabilityChecker answers whether slots on a facility are free. It
// never writes.
type AvailabilityChecker struct {
	Facilities FacilityReader
	Bookings   BookingStore
	Schedules  ScheduleStore
}

func NewAvailabilityChecker(f FacilityReader, b BookingStore, s ScheduleStore) *AvailabilityChecker {
	if f == nil || b == nil || s == nil {
		panic("nil store passed to NewAvailabilityChecker")
	}
	return &AvailabilityChecker{Facilities: f, Bookings: b, Schedules: s}
}

// Check evaluates each slot in order. A facility in maintenance fails the
// whole batch without looking at bookings. Malformed slots are reported
// per slot and do not stop the batch.
func (c *AvailabilityChecker) Check(ctx context.Context, facilityID uint64, slots []SlotInput) (Availability, error) {
	if len(slots) == 0 {
		return Availability{}, invalid(CodeInvalidRequest, "at least one slot is required", nil)
	}
	f, err := c.Facilities.GetByID(ctx, facilityID)
	if err != nil {
		return Availability{}, err
	}

	out := Availability{Available: true, Slots: make([]SlotResult, len(slots))}
	if f.Status == model.FacilityMaintenance {
		for i, in := range slots {
			out.Slots[i] = SlotResult{Date: in.Date, StartTime: in.StartTime, EndTime: in.EndTime, Reason: ReasonMaintenance}
		}
		out.Available = false
		return out, nil
	}

	for i, in := range slots {
		r, err := c.checkSlot(ctx, facilityID, in)
		if err != nil {
			return Availability{}, fmt.Errorf("slot %d: %w", i+1, err)
		}
		out.Slots[i] = r
		out.Available = out.Available && r.Available
	}
	return out, nil
}

func (c *AvailabilityChecker) checkSlot(ctx context.Context, facilityID uint64, in SlotInput) (SlotResult, error) {
	r := SlotResult{Date: in.Date, StartTime: in.StartTime, EndTime: in.EndTime}
	iv, err := in.Interval()
	if err != nil {
		r.Reason = slot.Reason(err)
		return r, nil
	}
	r.EndTime = iv.EndClock()

	if id, ok, err := c.Bookings.FindOverlapping(ctx, facilityID, iv); err != nil {
		return r, err
	} else if ok {
		r.Reason, r.ConflictID = ReasonBookingConflict, id
		return r, nil
	}
	if id, ok, err := c.Schedules.FindOverlapping(ctx, facilityID, iv); err != nil {
		return r, err
	} else if ok {
		r.Reason, r.ConflictID = ReasonScheduleConflict, id
		return r, nil
	}
	r.Available = true
	return r, nil
}

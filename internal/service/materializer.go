package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/slot"
)

// ScheduleMaterializer turns an approved training or tryout booking into a
// session that attendance can be taken against.
type ScheduleMaterializer struct {
	Schedules ScheduleStore
}

func NewScheduleMaterializer(s ScheduleStore) *ScheduleMaterializer {
	return &ScheduleMaterializer{Schedules: s}
}

// Materialize returns the session for b, creating it unless one already
// exists for (requester, facility, date, start). created is false when an
// existing session was returned.
func (m *ScheduleMaterializer) Materialize(ctx context.Context, b model.Booking) (model.Schedule, bool, error) {
	if b.Status != model.BookingApproved || !model.AttendanceEligible(b.Reason) {
		return model.Schedule{}, false, fmt.Errorf("booking %d is not an approved attendance session", b.ID)
	}
	iv := slot.Interval{Start: b.StartAt, End: b.EndAt}
	s := model.Schedule{
		OwnerID:     b.RequesterID,
		FacilityID:  b.FacilityID,
		BookingID:   b.ID,
		SessionDate: iv.Date(),
		StartTime:   iv.StartClock(),
		EndTime:     iv.EndClock(),
		Reason:      b.Reason,
		SessionType: b.Reason,
		Status:      model.ScheduleApproved,
	}
	created, err := m.Schedules.CreateIfAbsent(ctx, &s)
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("materialize booking %d: %w", b.ID, err)
	}
	return s, created, nil
}

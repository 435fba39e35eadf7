package model

import "time"

// ScheduleApproved is the only status the materializer writes.
const ScheduleApproved = "approved"

// Schedule is a session derived from an approved booking. It is keyed by
// (OwnerID, FacilityID, SessionDate, StartTime) and never rewritten.
// SessionDate is YYYY-MM-DD and the clocks are HH:mm, all in club time.
type Schedule struct {
	ID          uint64
	OwnerID     uint64
	FacilityID  uint64
	BookingID   uint64
	SessionDate string
	StartTime   string
	EndTime     string
	Reason      string
	SessionType string
	Status      string
	CreatedAt   time.Time
}

package model

import "time"

// Notification kinds.
const (
	NotifyBookingRequested = "booking.requested"
	NotifyBookingApproved  = "booking.approved"
	NotifyBookingRejected  = "booking.rejected"
	NotifyBookingsReset    = "bookings.reset"
	NotifyResetReminder    = "bookings.reset_reminder"
)

// Notification is an inbox entry for one user.
type Notification struct {
	ID        uint64
	UserID    uint64
	Kind      string
	Title     string
	Message   string
	Meta      map[string]any
	Read      bool
	CreatedAt time.Time
}

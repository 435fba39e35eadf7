package model

import (
	"errors"
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state of a facility booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// BlockingStatuses are the states that hold a facility slot. Pending
// requests reserve the slot provisionally until an exco decides.
var BlockingStatuses = []BookingStatus{BookingPending, BookingApproved}

// Valid reports whether s is one of the four known states.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected, BookingCancelled:
		return true
	}
	return false
}

// Blocking reports whether a booking in this state occupies its slot.
func (s BookingStatus) Blocking() bool {
	return s == BookingPending || s == BookingApproved
}

// Terminal reports whether no further decision can move the booking.
// A reset can still cancel an approved booking.
func (s BookingStatus) Terminal() bool {
	return s == BookingRejected || s == BookingCancelled
}

// BookingEvent drives a transition.
type BookingEvent string

const (
	EventApprove BookingEvent = "approve"
	EventReject  BookingEvent = "reject"
	EventReset   BookingEvent = "reset"
)

var (
	ErrInvalidTransition = errors.New("invalid booking transition")
	// ErrAlreadyDecided is returned when approve or reject targets a booking
	// that has left the pending state.
	ErrAlreadyDecided = errors.New("booking already decided")
)

// Transition returns the state reached by applying ev to from.
func Transition(from BookingStatus, ev BookingEvent) (BookingStatus, error) {
	if !from.Valid() {
		return from, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
	switch ev {
	case EventApprove, EventReject:
		if from != BookingPending {
			return from, ErrAlreadyDecided
		}
		if ev == EventApprove {
			return BookingApproved, nil
		}
		return BookingRejected, nil
	case EventReset:
		return BookingCancelled, nil
	}
	return from, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev)
}

// Booking reasons. Only training and tryout sessions feed attendance.
const (
	ReasonTraining = "training"
	ReasonTryout   = "tryout"
	ReasonPractice = "practice"
	ReasonEvent    = "event"
	ReasonMeeting  = "meeting"
)

// AttendanceEligible reports whether approving a booking with this reason
// should materialize a schedule.
func AttendanceEligible(reason string) bool {
	return reason == ReasonTraining || reason == ReasonTryout
}

// EquipmentLine is one equipment request carried by a booking. The name is
// copied from the ledger when the units are reserved.
type EquipmentLine struct {
	EquipmentID   uint64 `json:"equipment_id"`
	EquipmentName string `json:"equipment_name"`
	Quantity      int    `json:"quantity"`
	Reason        string `json:"reason,omitempty"`
}

// Booking mirrors a row in `bookings` plus its equipment lines.
// StartAt and EndAt are stored as UTC instants.
type Booking struct {
	ID                uint64
	FacilityID        uint64
	RequesterID       uint64
	RequesterName     string
	StartAt           time.Time
	EndAt             time.Time
	Status            BookingStatus
	Reason            string
	Notes             string
	ApproverID        *uint64
	ApprovedAt        *time.Time
	EquipmentReleased bool
	Equipment         []EquipmentLine
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasEquipment reports whether the booking holds any units.
func (b Booking) HasEquipment() bool {
	for _, l := range b.Equipment {
		if l.Quantity > 0 {
			return true
		}
	}
	return false
}

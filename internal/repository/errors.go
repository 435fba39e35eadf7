// Package repository defines the MySQL data access layer and the error
// values shared by every store. Handlers and services inspect these with
// errors.Is and errors.As to pick a response: not-found values become 404,
// ErrConflict and ErrInsufficientStock become 409.
package repository

import (
	"errors"
	"fmt"

	"github.com/iliyamo/sportsclub/internal/model"
)

var (
	ErrFacilityNotFound     = errors.New("facility not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrEquipmentNotFound    = errors.New("equipment not found")
	ErrReportNotFound       = errors.New("damage report not found")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")

	// ErrFacilityInMaintenance blocks every booking on the facility.
	ErrFacilityInMaintenance = errors.New("facility in maintenance")
	// ErrEquipmentInactive is returned when a request names a retired pool.
	ErrEquipmentInactive = errors.New("equipment inactive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyDecided    = model.ErrAlreadyDecided
	ErrAlreadyResolved   = errors.New("damage report already resolved")
	ErrEmailExists       = errors.New("email already exists")
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is the parent of every slot clash. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// BookingConflictError names the blocking booking that overlaps a request.
type BookingConflictError struct {
	BookingID uint64
}

func (e *BookingConflictError) Error() string {
	return fmt.Sprintf("slot overlaps booking %d", e.BookingID)
}

func (e *BookingConflictError) Unwrap() error { return ErrConflict }

// ScheduleConflictError names the approved session that overlaps a request.
type ScheduleConflictError struct {
	ScheduleID uint64
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("slot overlaps schedule %d", e.ScheduleID)
}

func (e *ScheduleConflictError) Unwrap() error { return ErrConflict }

// StockError reports how many units were actually available when a
// reservation or damage report could not be applied.
type StockError struct {
	EquipmentID uint64
	Name        string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

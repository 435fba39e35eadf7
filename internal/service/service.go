// Package service holds the booking rules: availability checks, the
// booking lifecycle, schedule materialization, the equipment ledger
// operations and the periodic reset and sweep. Services talk to storage
// through the small interfaces below so the same code runs against MySQL
// and the in-memory store.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/slot"
)

type FacilityReader interface {
	GetByID(ctx context.Context, id uint64) (model.Facility, error)
}

type BookingStore interface {
	FindOverlapping(ctx context.Context, facilityID uint64, iv slot.Interval) (uint64, bool, error)
	CreateExclusive(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	ListPending(ctx context.Context) ([]model.Booking, error)
	ListByRequester(ctx context.Context, requesterID uint64, limit, offset int) ([]model.Booking, int, error)
	ListAttendanceSessions(ctx context.Context, requesterID uint64) ([]model.Booking, error)
	Decide(ctx context.Context, id uint64, to model.BookingStatus, approverID uint64, at time.Time) (model.Booking, error)
	CancelFrom(ctx context.Context, cutoff time.Time) (int64, error)
	ListUnreleased(ctx context.Context, now time.Time) ([]model.Booking, error)
	MarkReleased(ctx context.Context, bookingID uint64) (bool, error)
}

type ScheduleStore interface {
	FindOverlapping(ctx context.Context, facilityID uint64, iv slot.Interval) (uint64, bool, error)
	CreateIfAbsent(ctx context.Context, s *model.Schedule) (bool, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Schedule, error)
}

type EquipmentStore interface {
	GetByID(ctx context.Context, id uint64) (model.Equipment, error)
	List(ctx context.Context, onlyAvailable bool) ([]model.Equipment, error)
	Reserve(ctx context.Context, id uint64, qty int) (string, error)
	Release(ctx context.Context, id uint64, qty int) error
	ReportDamage(ctx context.Context, d *model.DamageReport) error
	ResolveDamage(ctx context.Context, reportID, resolverID uint64, res model.Resolution, at time.Time) (model.DamageReport, error)
	ListDamageReports(ctx context.Context, status model.DamageStatus) ([]model.DamageReport, error)
}

type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ListIDsByRole(ctx context.Context, role string) ([]uint64, error)
}

// Clock returns the current instant. Tests pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func clockOr(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

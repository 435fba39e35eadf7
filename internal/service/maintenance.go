package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/slot"
)

// SweepResult summarizes one equipment sweep.
type SweepResult struct {
	Scanned  int
	Released int
	Failed   int
}

// Sweeper runs the operations that are triggered by time rather than by a
// user: returning equipment from finished bookings and the weekly reset.
type Sweeper struct {
	Bookings BookingStore
	Users    UserDirectory
	Notifier Notifier
	Log      *zap.Logger
}

func NewSweeper(b BookingStore, users UserDirectory, n Notifier, log *zap.Logger) *Sweeper {
	if b == nil {
		panic("nil booking store passed to NewSweeper")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{Bookings: b, Users: users, Notifier: n, Log: log}
}

// ReleaseElapsed returns reserved equipment for every approved or cancelled
// booking that ended at or before now. Each booking is released at most
// once, so running it again is a no-op. One failing booking does not stop
// the rest.
func (s *Sweeper) ReleaseElapsed(ctx context.Context, now time.Time) (SweepResult, error) {
	due, err := s.Bookings.ListUnreleased(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list unreleased: %w", err)
	}
	res := SweepResult{Scanned: len(due)}
	for _, b := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ok, err := s.Bookings.MarkReleased(ctx, b.ID)
		if err != nil {
			res.Failed++
			s.Log.Error("release equipment failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
			continue
		}
		if ok {
			res.Released++
		}
	}
	if res.Scanned > 0 {
		s.Log.Info("equipment sweep finished",
			zap.Int("scanned", res.Scanned), zap.Int("released", res.Released), zap.Int("failed", res.Failed))
	}
	return res, nil
}

// Reset cancels every non-cancelled booking starting at or after cutoff and
// tells each active coach. Bookings before cutoff are left alone.
func (s *Sweeper) Reset(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.Bookings.CancelFrom(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset bookings: %w", err)
	}
	s.Log.Info("bookings reset", zap.Time("cutoff", cutoff), zap.Int64("cancelled", n))
	at := cutoff.In(slot.Location).Format(slot.DateLayout + " " + slot.ClockLayout)
	emitRole(ctx, s.Log, s.Users, s.Notifier, model.RoleCoach, func(uid uint64) model.Notification {
		return model.Notification{
			UserID:  uid,
			Kind:    model.NotifyBookingsReset,
			Title:   "Bookings reset",
			Message: fmt.Sprintf("All bookings from %s were cancelled. Please submit new requests.", at),
			Meta:    map[string]any{"cancelled": n, "cutoff": cutoff.UTC().Format(time.RFC3339)},
		}
	})
	return n, nil
}

// RemindReset warns coaches ahead of the next reset. It returns the number
// of coaches notified.
func (s *Sweeper) RemindReset(ctx context.Context, resetAt time.Time) int {
	at := resetAt.In(slot.Location).Format("Mon 02 Jan 15:04")
	return emitRole(ctx, s.Log, s.Users, s.Notifier, model.RoleCoach, func(uid uint64) model.Notification {
		return model.Notification{
			UserID:  uid,
			Kind:    model.NotifyResetReminder,
			Title:   "Weekly booking reset",
			Message: fmt.Sprintf("Bookings will be reset on %s.", at),
			Meta:    map[string]any{"reset_at": resetAt.UTC().Format(time.RFC3339)},
		}
	})
}

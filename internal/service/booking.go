package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/repository"
	"github.com/iliyamo/sportsclub/internal/slot"
)

type CreateBookingInput struct {
	FacilityID  uint64
	RequesterID uint64
	Slots       []SlotInput
	Reason      string
	Notes       string
	Equipment   []model.EquipmentLine
}

// DecisionResult is what an exco decision produced.
type DecisionResult struct {
	Booking         model.Booking
	ScheduleCreated bool
	Schedule        *model.Schedule
}

type BookingService struct {
	Facilities   FacilityReader
	Bookings     BookingStore
	Users        UserDirectory
	Materializer *ScheduleMaterializer
	Notifier     Notifier
	Log          *zap.Logger
	Now          Clock

	// ReleaseOnReject returns reserved equipment as soon as a booking is
	// rejected instead of waiting for the sweep.
	ReleaseOnReject bool
}

func NewBookingService(f FacilityReader, b BookingStore, sch ScheduleStore, users UserDirectory, n Notifier, log *zap.Logger) *BookingService {
	if f == nil || b == nil || sch == nil {
		panic("nil store passed to NewBookingService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{
		Facilities:   f,
		Bookings:     b,
		Users:        users,
		Materializer: NewScheduleMaterializer(sch),
		Notifier:     n,
		Log:          log,
	}
}

// Create validates every slot and equipment line, then commits one pending
// booking per slot. Each slot commits on its own: when a later slot fails
// the bookings already created are returned together with the error.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) ([]model.Booking, error) {
	if len(in.Slots) == 0 {
		return nil, invalid(CodeInvalidRequest, "at least one slot is required", nil)
	}
	f, err := s.Facilities.GetByID(ctx, in.FacilityID)
	if errors.Is(err, repository.ErrFacilityNotFound) {
		return nil, invalid(CodeFacilityNotFound, fmt.Sprintf("facility %d does not exist", in.FacilityID), err)
	}
	if err != nil {
		return nil, err
	}
	if f.Status == model.FacilityMaintenance {
		return nil, invalid(CodeMaintenance, fmt.Sprintf("%s is under maintenance", f.Name), repository.ErrFacilityInMaintenance)
	}

	intervals := make([]slot.Interval, len(in.Slots))
	for i, si := range in.Slots {
		iv, err := si.Interval()
		if err != nil {
			return nil, invalid(slot.Reason(err), fmt.Sprintf("slot %d: %v", i+1, err), err)
		}
		intervals[i] = iv
	}
	for _, l := range in.Equipment {
		if l.EquipmentID == 0 {
			return nil, invalid(CodeInvalidEquipment, "equipment_id is required", nil)
		}
		if l.Quantity < 1 {
			return nil, invalid(CodeInvalidQuantity, fmt.Sprintf("quantity for equipment %d must be at least 1", l.EquipmentID), nil)
		}
	}

	name := ""
	if s.Users != nil {
		if u, err := s.Users.GetByID(ctx, in.RequesterID); err == nil {
			name = u.FullName()
		}
	}

	created := make([]model.Booking, 0, len(intervals))
	for i, iv := range intervals {
		b := model.Booking{
			FacilityID:    in.FacilityID,
			RequesterID:   in.RequesterID,
			RequesterName: name,
			StartAt:       iv.Start,
			EndAt:         iv.End,
			Reason:        strings.TrimSpace(in.Reason),
			Notes:         in.Notes,
			Equipment:     append([]model.EquipmentLine(nil), in.Equipment...),
		}
		if err := s.Bookings.CreateExclusive(ctx, &b); err != nil {
			return created, s.createError(i, err)
		}
		created = append(created, b)
		s.Log.Info("booking created",
			zap.Uint64("booking_id", b.ID), zap.Uint64("facility_id", b.FacilityID),
			zap.Uint64("requester_id", b.RequesterID), zap.String("slot", iv.String()))
		s.announceRequest(ctx, f, b)
	}
	return created, nil
}

func (s *BookingService) createError(i int, err error) error {
	switch {
	case errors.Is(err, repository.ErrFacilityNotFound):
		return invalid(CodeFacilityNotFound, "facility does not exist", err)
	case errors.Is(err, repository.ErrFacilityInMaintenance):
		return invalid(CodeMaintenance, "facility is under maintenance", err)
	case errors.Is(err, repository.ErrEquipmentNotFound), errors.Is(err, repository.ErrEquipmentInactive):
		return invalid(CodeInvalidEquipment, err.Error(), err)
	}
	return fmt.Errorf("slot %d: %w", i+1, err)
}

func (s *BookingService) announceRequest(ctx context.Context, f model.Facility, b model.Booking) {
	iv := slot.Interval{Start: b.StartAt, End: b.EndAt}
	who := b.RequesterName
	if who == "" {
		who = fmt.Sprintf("user %d", b.RequesterID)
	}
	emitRole(ctx, s.Log, s.Users, s.Notifier, model.RoleExco, func(uid uint64) model.Notification {
		return model.Notification{
			UserID:  uid,
			Kind:    model.NotifyBookingRequested,
			Title:   "New booking request",
			Message: fmt.Sprintf("%s requested %s on %s", who, f.Name, iv),
			Meta:    map[string]any{"booking_id": b.ID, "facility_id": b.FacilityID},
		}
	})
}

// Decide applies an exco decision to a pending booking. Approving a
// training or tryout booking also materializes its session; a failure
// there is logged and does not undo the approval.
func (s *BookingService) Decide(ctx context.Context, id, approverID uint64, approve bool) (DecisionResult, error) {
	to := model.BookingRejected
	if approve {
		to = model.BookingApproved
	}
	now := clockOr(s.Now)()
	b, err := s.Bookings.Decide(ctx, id, to, approverID, now)
	if err != nil {
		return DecisionResult{}, err
	}
	res := DecisionResult{Booking: b}
	s.Log.Info("booking decided",
		zap.Uint64("booking_id", b.ID), zap.String("status", string(b.Status)), zap.Uint64("approver_id", approverID))

	if b.Status == model.BookingApproved && model.AttendanceEligible(b.Reason) && s.Materializer != nil {
		sch, created, err := s.Materializer.Materialize(ctx, b)
		if err != nil {
			s.Log.Error("schedule materialization failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
		} else {
			res.Schedule = &sch
			res.ScheduleCreated = created
		}
	}
	if b.Status == model.BookingRejected && s.ReleaseOnReject && b.HasEquipment() {
		if _, err := s.Bookings.MarkReleased(ctx, b.ID); err != nil {
			s.Log.Error("release on reject failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
		} else {
			res.Booking.EquipmentReleased = true
		}
	}

	s.announceDecision(ctx, res)
	return res, nil
}

func (s *BookingService) announceDecision(ctx context.Context, res DecisionResult) {
	b := res.Booking
	iv := slot.Interval{Start: b.StartAt, End: b.EndAt}
	n := model.Notification{
		UserID: b.RequesterID,
		Meta:   map[string]any{"booking_id": b.ID, "facility_id": b.FacilityID},
	}
	if b.Status == model.BookingApproved {
		n.Kind = model.NotifyBookingApproved
		n.Title = "Booking approved"
		n.Message = fmt.Sprintf("Your booking for %s was approved", iv)
		if res.Schedule != nil {
			n.Meta["schedule_id"] = res.Schedule.ID
		}
	} else {
		n.Kind = model.NotifyBookingRejected
		n.Title = "Booking rejected"
		n.Message = fmt.Sprintf("Your booking for %s was rejected", iv)
	}
	emit(ctx, s.Log, s.Notifier, n)
}

func (s *BookingService) ListPending(ctx context.Context) ([]model.Booking, error) {
	return s.Bookings.ListPending(ctx)
}

// ListMine pages through a requester's bookings, newest first. page starts
// at 1 and limit is clamped to [1,100].
func (s *BookingService) ListMine(ctx context.Context, requesterID uint64, page, limit int) ([]model.Booking, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.Bookings.ListByRequester(ctx, requesterID, limit, (page-1)*limit)
}

// Sessions lists approved bookings that attendance can be taken for.
// requesterID zero lists every coach's sessions.
func (s *BookingService) Sessions(ctx context.Context, requesterID uint64) ([]model.Booking, error) {
	return s.Bookings.ListAttendanceSessions(ctx, requesterID)
}

// TrainingSessions lists the schedule rows materialized for a coach.
func (s *BookingService) TrainingSessions(ctx context.Context, ownerID uint64) ([]model.Schedule, error) {
	return s.Materializer.Schedules.ListByOwner(ctx, ownerID)
}

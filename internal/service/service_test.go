package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/queue"
	"github.com/iliyamo/sportsclub/internal/repository"
	"github.com/iliyamo/sportsclub/internal/repository/memstore"
	"github.com/iliyamo/sportsclub/internal/slot"
)

type fixture struct {
	store    *memstore.Store
	bookings *BookingService
	checker  *AvailabilityChecker
	sweeper  *Sweeper
	court    model.Facility
	coach    model.User
	exco     model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	f := &fixture{store: st}
	f.court = st.AddFacility(model.Facility{Name: "Badminton Court A", Type: "court"})
	f.coach = st.AddUser(model.User{Email: "coach@club.test", Role: model.RoleCoach, FirstName: "Aina", LastName: "Rahman"})
	f.exco = st.AddUser(model.User{Email: "exco@club.test", Role: model.RoleExco, FirstName: "Wei", LastName: "Tan"})

	notifier := &StoreNotifier{Store: st.Notifications()}
	f.checker = NewAvailabilityChecker(st.Facilities(), st.Bookings(), st.Schedules())
	f.bookings = NewBookingService(st.Facilities(), st.Bookings(), st.Schedules(), st.Users(), notifier, zap.NewNop())
	f.bookings.Now = func() time.Time { return mustAt(t, "2025-03-09", "12:00") }
	f.sweeper = NewSweeper(st.Bookings(), st.Users(), notifier, zap.NewNop())
	return f
}

func mustAt(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(slot.DateLayout+" "+slot.ClockLayout, date+" "+clock, slot.Location)
	require.NoError(t, err)
	return ts
}

func (f *fixture) seedBooking(t *testing.T, status model.BookingStatus, date, start, end string) model.Booking {
	t.Helper()
	return f.store.AddBooking(model.Booking{
		FacilityID:  f.court.ID,
		RequesterID: f.coach.ID,
		StartAt:     mustAt(t, date, start),
		EndAt:       mustAt(t, date, end),
		Status:      status,
		Reason:      model.ReasonTraining,
	})
}

func slotsOf(date, start, end string) []SlotInput {
	return []SlotInput{{Date: date, StartTime: start, EndTime: end}}
}

func kinds(ns []model.Notification, userID uint64) []string {
	var out []string
	for _, n := range ns {
		if n.UserID == userID {
			out = append(out, n.Kind)
		}
	}
	return out
}

func TestCheckReportsBookingConflict(t *testing.T) {
	f := newFixture(t)
	a := f.seedBooking(t, model.BookingPending, "2025-03-10", "16:00", "18:00")
	ctx := context.Background()

	got, err := f.checker.Check(ctx, f.court.ID, slotsOf("2025-03-10", "17:00", "19:00"))
	require.NoError(t, err)
	assert.False(t, got.Available)
	require.Len(t, got.Slots, 1)
	assert.Equal(t, ReasonBookingConflict, got.Slots[0].Reason)
	assert.Equal(t, a.ID, got.Slots[0].ConflictID)

	got, err = f.checker.Check(ctx, f.court.ID, slotsOf("2025-03-10", "18:00", "19:00"))
	require.NoError(t, err)
	assert.True(t, got.Available)
}

func TestCheckIgnoresRejectedAndCancelled(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, model.BookingRejected, "2025-03-10", "16:00", "18:00")
	f.seedBooking(t, model.BookingCancelled, "2025-03-10", "16:00", "18:00")

	got, err := f.checker.Check(context.Background(), f.court.ID, slotsOf("2025-03-10", "16:30", "17:30"))
	require.NoError(t, err)
	assert.True(t, got.Available)
}

func TestCheckReportsScheduleConflict(t *testing.T) {
	f := newFixture(t)
	sc := f.store.AddSchedule(model.Schedule{
		OwnerID: f.coach.ID, FacilityID: f.court.ID, SessionDate: "2025-03-11",
		StartTime: "08:00", EndTime: "10:00", Status: model.ScheduleApproved,
	})

	got, err := f.checker.Check(context.Background(), f.court.ID, []SlotInput{
		{Date: "2025-03-11", StartTime: "07:00", EndTime: "08:00"},
		{Date: "2025-03-11", StartTime: "09:00", DurationMinutes: 30},
	})
	require.NoError(t, err)
	assert.False(t, got.Available)
	assert.True(t, got.Slots[0].Available)
	assert.Equal(t, ReasonScheduleConflict, got.Slots[1].Reason)
	assert.Equal(t, sc.ID, got.Slots[1].ConflictID)
	assert.Equal(t, "09:30", got.Slots[1].EndTime)
}

func TestCheckMaintenanceSkipsBookingLookups(t *testing.T) {
	f := newFixture(t)
	gym := f.store.AddFacility(model.Facility{Name: "Gym", Status: model.FacilityMaintenance})

	got, err := f.checker.Check(context.Background(), gym.ID, []SlotInput{
		{Date: "2025-03-10", StartTime: "08:00", EndTime: "09:00"},
		{Date: "2025-03-10", StartTime: "10:00", EndTime: "11:00"},
	})
	require.NoError(t, err)
	assert.False(t, got.Available)
	for _, s := range got.Slots {
		assert.Equal(t, ReasonMaintenance, s.Reason)
	}
	assert.Zero(t, f.store.BookingQueries())
}

func TestCheckMalformedSlotsAreReportedPerSlot(t *testing.T) {
	f := newFixture(t)
	got, err := f.checker.Check(context.Background(), f.court.ID, []SlotInput{
		{Date: "2025-03-10", StartTime: "10:00", EndTime: "09:00"},
		{Date: "10/03/2025", StartTime: "10:00", EndTime: "11:00"},
		{Date: "2025-03-10", StartTime: "12:00", EndTime: "13:00"},
	})
	require.NoError(t, err)
	assert.False(t, got.Available)
	assert.Equal(t, slot.ReasonEndBeforeStart, got.Slots[0].Reason)
	assert.Equal(t, slot.ReasonInvalidDatetime, got.Slots[1].Reason)
	assert.True(t, got.Slots[2].Available)
}

func TestCheckEmptyBatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.checker.Check(context.Background(), f.court.ID, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeInvalidRequest, ve.Code)
}

func TestCreateBookingReservesEquipmentAndNotifiesExco(t *testing.T) {
	f := newFixture(t)
	racket := f.store.AddEquipment(model.Equipment{Name: "Racket", QuantityTotal: 10, QuantityAvailable: 10, IsActive: true})

	got, err := f.bookings.Create(context.Background(), CreateBookingInput{
		FacilityID:  f.court.ID,
		RequesterID: f.coach.ID,
		Slots: []SlotInput{
			{Date: "2025-03-10", StartTime: "16:00", EndTime: "18:00"},
			{Date: "2025-03-12", StartTime: "16:00", EndTime: "18:00"},
		},
		Reason:    " training ",
		Equipment: []model.EquipmentLine{{EquipmentID: racket.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, b := range got {
		assert.Equal(t, model.BookingPending, b.Status)
		assert.Equal(t, "training", b.Reason)
		assert.Equal(t, "Aina Rahman", b.RequesterName)
		require.Len(t, b.Equipment, 1)
		assert.Equal(t, "Racket", b.Equipment[0].EquipmentName)
	}
	assert.Equal(t, 4, f.store.Equipment(racket.ID).QuantityAvailable)
	assert.Equal(t, []string{model.NotifyBookingRequested, model.NotifyBookingRequested},
		kinds(f.store.AllNotifications(), f.exco.ID))
}

func TestCreateBookingInsufficientStock(t *testing.T) {
	f := newFixture(t)
	racket := f.store.AddEquipment(model.Equipment{Name: "Racket", QuantityTotal: 5, QuantityAvailable: 2, IsActive: true})

	got, err := f.bookings.Create(context.Background(), CreateBookingInput{
		FacilityID:  f.court.ID,
		RequesterID: f.coach.ID,
		Slots:       slotsOf("2025-03-10", "16:00", "18:00"),
		Reason:      model.ReasonPractice,
		Equipment:   []model.EquipmentLine{{EquipmentID: racket.ID, Quantity: 3}},
	})
	require.ErrorIs(t, err, repository.ErrInsufficientStock)
	var se *repository.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Available)
	assert.Contains(t, err.Error(), "available 2")
	assert.Empty(t, got)
	assert.Empty(t, f.store.AllBookings())
	assert.Equal(t, 2, f.store.Equipment(racket.ID).QuantityAvailable)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	gym := f.store.AddFacility(model.Facility{Name: "Gym", Status: model.FacilityMaintenance})
	retired := f.store.AddEquipment(model.Equipment{Name: "Old net", QuantityTotal: 1, QuantityAvailable: 1})

	cases := []struct {
		name string
		in   CreateBookingInput
		code string
	}{
		{"no slots", CreateBookingInput{FacilityID: f.court.ID}, CodeInvalidRequest},
		{"unknown facility", CreateBookingInput{FacilityID: 999, Slots: slotsOf("2025-03-10", "08:00", "09:00")}, CodeFacilityNotFound},
		{"maintenance", CreateBookingInput{FacilityID: gym.ID, Slots: slotsOf("2025-03-10", "08:00", "09:00")}, CodeMaintenance},
		{"end before start", CreateBookingInput{FacilityID: f.court.ID, Slots: slotsOf("2025-03-10", "09:00", "08:00")}, CodeEndBeforeStart},
		{"bad date", CreateBookingInput{FacilityID: f.court.ID, Slots: slotsOf("2025-13-10", "08:00", "09:00")}, CodeInvalidDatetime},
		{"zero quantity", CreateBookingInput{FacilityID: f.court.ID, Slots: slotsOf("2025-03-10", "08:00", "09:00"),
			Equipment: []model.EquipmentLine{{EquipmentID: retired.ID}}}, CodeInvalidQuantity},
		{"inactive equipment", CreateBookingInput{FacilityID: f.court.ID, Slots: slotsOf("2025-03-10", "08:00", "09:00"),
			Equipment: []model.EquipmentLine{{EquipmentID: retired.ID, Quantity: 1}}}, CodeInvalidEquipment},
		{"unknown equipment", CreateBookingInput{FacilityID: f.court.ID, Slots: slotsOf("2025-03-10", "08:00", "09:00"),
			Equipment: []model.EquipmentLine{{EquipmentID: 4242, Quantity: 1}}}, CodeInvalidEquipment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.bookings.Create(context.Background(), tc.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.code, ve.Code)
		})
	}
	assert.Empty(t, f.store.AllBookings())
}

func TestCreateBookingReturnsPartialResultOnConflict(t *testing.T) {
	f := newFixture(t)
	existing := f.seedBooking(t, model.BookingApproved, "2025-03-12", "16:00", "18:00")

	got, err := f.bookings.Create(context.Background(), CreateBookingInput{
		FacilityID:  f.court.ID,
		RequesterID: f.coach.ID,
		Slots: []SlotInput{
			{Date: "2025-03-10", StartTime: "16:00", EndTime: "18:00"},
			{Date: "2025-03-12", StartTime: "17:00", EndTime: "19:00"},
		},
	})
	require.ErrorIs(t, err, repository.ErrConflict)
	var ce *repository.BookingConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, existing.ID, ce.BookingID)
	require.Len(t, got, 1)
	assert.Equal(t, mustAt(t, "2025-03-10", "16:00"), got[0].StartAt)
}

func TestConcurrentCreatesAdmitOneBooking(t *testing.T) {
	f := newFixture(t)
	const n = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, clash int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.bookings.Create(context.Background(), CreateBookingInput{
				FacilityID:  f.court.ID,
				RequesterID: f.coach.ID,
				Slots:       slotsOf("2025-03-10", "16:00", "18:00"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrConflict):
				clash++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, clash)
	assert.Len(t, f.store.AllBookings(), 1)
}

func TestConcurrentReservationsNeverOverdrawStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// usable = 8 - 1 damaged = 7, so three requests of 2 fit
	shuttles := f.store.AddEquipment(model.Equipment{Name: "Shuttle tube", QuantityTotal: 8, QuantityAvailable: 7,
		QuantityDamaged: 1, IsActive: true})
	const (
		n   = 10
		qty = 2
	)
	courts := make([]model.Facility, n)
	for i := range courts {
		courts[i] = f.store.AddFacility(model.Facility{Name: fmt.Sprintf("Court %d", i+1), Type: "court"})
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok, short  int
		unexpected []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(facilityID uint64) {
			defer wg.Done()
			_, err := f.bookings.Create(ctx, CreateBookingInput{
				FacilityID:  facilityID,
				RequesterID: f.coach.ID,
				Slots:       slotsOf("2025-03-10", "16:00", "18:00"),
				Reason:      model.ReasonPractice,
				Equipment:   []model.EquipmentLine{{EquipmentID: shuttles.ID, Quantity: qty}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrInsufficientStock):
				short++
			default:
				unexpected = append(unexpected, err)
			}
		}(courts[i].ID)
	}
	wg.Wait()

	require.Empty(t, unexpected)
	assert.Equal(t, 7/qty, ok)
	assert.Equal(t, n-7/qty, short)
	left := f.store.Equipment(shuttles.ID).QuantityAvailable
	assert.GreaterOrEqual(t, left, 0)
	assert.Equal(t, 7-ok*qty, left)

	// cancel and sweep, then try to push stock past the usable ceiling
	_, err := f.sweeper.Reset(ctx, mustAt(t, "2025-03-09", "00:00"))
	require.NoError(t, err)
	res, err := f.sweeper.ReleaseElapsed(ctx, mustAt(t, "2025-03-10", "19:00"))
	require.NoError(t, err)
	assert.Equal(t, ok, res.Released)
	assert.Equal(t, 7, f.store.Equipment(shuttles.ID).QuantityAvailable)

	require.NoError(t, f.store.Ledger().Release(ctx, shuttles.ID, 5))
	_, err = f.sweeper.ReleaseElapsed(ctx, mustAt(t, "2025-03-10", "19:00"))
	require.NoError(t, err)
	e := f.store.Equipment(shuttles.ID)
	assert.Equal(t, e.QuantityTotal-e.QuantityDamaged, e.QuantityAvailable)
}

func TestApproveTrainingMaterializesSchedule(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, model.BookingPending, "2025-03-10", "16:00", "18:00")

	res, err := f.bookings.Decide(context.Background(), b.ID, f.exco.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.BookingApproved, res.Booking.Status)
	require.NotNil(t, res.Booking.ApproverID)
	assert.Equal(t, f.exco.ID, *res.Booking.ApproverID)
	assert.True(t, res.ScheduleCreated)
	require.NotNil(t, res.Schedule)
	assert.Equal(t, "2025-03-10", res.Schedule.SessionDate)
	assert.Equal(t, "16:00", res.Schedule.StartTime)
	assert.Equal(t, "18:00", res.Schedule.EndTime)
	assert.Equal(t, model.ReasonTraining, res.Schedule.SessionType)

	again, created, err := f.bookings.Materializer.Materialize(context.Background(), res.Booking)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, res.Schedule.ID, again.ID)
	assert.Len(t, f.store.AllSchedules(), 1)

	var approved *model.Notification
	for _, n := range f.store.AllNotifications() {
		if n.UserID == f.coach.ID && n.Kind == model.NotifyBookingApproved {
			n := n
			approved = &n
		}
	}
	require.NotNil(t, approved)
	assert.Equal(t, res.Schedule.ID, approved.Meta["schedule_id"])
}

func TestResetFreesMaterializedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.seedBooking(t, model.BookingPending, "2025-03-10", "16:00", "18:00")
	res, err := f.bookings.Decide(ctx, first.ID, f.exco.ID, true)
	require.NoError(t, err)
	require.NotNil(t, res.Schedule)
	scheduleID := res.Schedule.ID

	n, err := f.sweeper.Reset(ctx, mustAt(t, "2025-03-09", "00:00"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	avail, err := f.checker.Check(ctx, f.court.ID, slotsOf("2025-03-10", "16:00", "18:00"))
	require.NoError(t, err)
	require.Len(t, avail.Slots, 1)
	assert.True(t, avail.Slots[0].Available, "reason %q", avail.Slots[0].Reason)

	got, err := f.bookings.Create(ctx, CreateBookingInput{
		FacilityID:  f.court.ID,
		RequesterID: f.coach.ID,
		Slots:       slotsOf("2025-03-10", "16:00", "18:00"),
		Reason:      model.ReasonTraining,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	res, err = f.bookings.Decide(ctx, got[0].ID, f.exco.ID, true)
	require.NoError(t, err)
	require.NotNil(t, res.Schedule)
	assert.Equal(t, scheduleID, res.Schedule.ID)
	assert.Equal(t, got[0].ID, res.Schedule.BookingID)
	assert.Len(t, f.store.AllSchedules(), 1)

	// the live session blocks again
	avail, err = f.checker.Check(ctx, f.court.ID, slotsOf("2025-03-10", "17:00", "19:00"))
	require.NoError(t, err)
	assert.False(t, avail.Slots[0].Available)
}

func TestApproveEventDoesNotMaterialize(t *testing.T) {
	f := newFixture(t)
	b := f.store.AddBooking(model.Booking{
		FacilityID: f.court.ID, RequesterID: f.coach.ID, Status: model.BookingPending, Reason: model.ReasonEvent,
		StartAt: mustAt(t, "2025-03-10", "16:00"), EndAt: mustAt(t, "2025-03-10", "18:00"),
	})
	res, err := f.bookings.Decide(context.Background(), b.ID, f.exco.ID, true)
	require.NoError(t, err)
	assert.False(t, res.ScheduleCreated)
	assert.Nil(t, res.Schedule)
	assert.Empty(t, f.store.AllSchedules())
}

func TestDecideTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, model.BookingPending, "2025-03-10", "16:00", "18:00")
	_, err := f.bookings.Decide(context.Background(), b.ID, f.exco.ID, false)
	require.NoError(t, err)

	_, err = f.bookings.Decide(context.Background(), b.ID, f.exco.ID, true)
	require.ErrorIs(t, err, model.ErrAlreadyDecided)
	assert.Equal(t, model.BookingRejected, f.store.Booking(b.ID).Status)

	_, err = f.bookings.Decide(context.Background(), 999, f.exco.ID, true)
	require.ErrorIs(t, err, repository.ErrBookingNotFound)
}

func TestRejectReleasesEquipmentWhenConfigured(t *testing.T) {
	for _, release := range []bool{false, true} {
		f := newFixture(t)
		f.bookings.ReleaseOnReject = release
		balls := f.store.AddEquipment(model.Equipment{Name: "Shuttlecock", QuantityTotal: 20, QuantityAvailable: 20, IsActive: true})
		got, err := f.bookings.Create(context.Background(), CreateBookingInput{
			FacilityID: f.court.ID, RequesterID: f.coach.ID, Slots: slotsOf("2025-03-10", "16:00", "18:00"),
			Equipment: []model.EquipmentLine{{EquipmentID: balls.ID, Quantity: 6}},
		})
		require.NoError(t, err)

		res, err := f.bookings.Decide(context.Background(), got[0].ID, f.exco.ID, false)
		require.NoError(t, err)
		if release {
			assert.True(t, res.Booking.EquipmentReleased)
			assert.Equal(t, 20, f.store.Equipment(balls.ID).QuantityAvailable)
		} else {
			assert.False(t, res.Booking.EquipmentReleased)
			assert.Equal(t, 14, f.store.Equipment(balls.ID).QuantityAvailable)
		}
	}
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.bookings.Notifier = NotifierFunc(func(context.Context, model.Notification) error {
		calls++
		return errors.New("smtp down")
	})
	got, err := f.bookings.Create(context.Background(), CreateBookingInput{
		FacilityID: f.court.ID, RequesterID: f.coach.ID, Slots: slotsOf("2025-03-10", "16:00", "18:00"),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	f.bookings.Notifier = NotifierFunc(func(context.Context, model.Notification) error { panic("boom") })
	_, err = f.bookings.Decide(context.Background(), got[0].ID, f.exco.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, model.BookingApproved, f.store.Booking(got[0].ID).Status)
}

func TestListMinePagination(t *testing.T) {
	f := newFixture(t)
	for _, d := range []string{"2025-03-10", "2025-03-11", "2025-03-12"} {
		f.seedBooking(t, model.BookingPending, d, "08:00", "09:00")
	}
	page, total, err := f.bookings.ListMine(context.Background(), f.coach.ID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, mustAt(t, "2025-03-10", "08:00"), page[0].StartAt)
}

func TestResetCancelsFromCutoffOnly(t *testing.T) {
	f := newFixture(t)
	before := f.seedBooking(t, model.BookingApproved, "2025-03-09", "10:00", "12:00")
	after1 := f.seedBooking(t, model.BookingPending, "2025-03-10", "10:00", "12:00")
	after2 := f.seedBooking(t, model.BookingApproved, "2025-03-11", "10:00", "12:00")
	f.seedBooking(t, model.BookingCancelled, "2025-03-12", "10:00", "12:00")

	n, err := f.sweeper.Reset(context.Background(), mustAt(t, "2025-03-09", "20:00"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, model.BookingApproved, f.store.Booking(before.ID).Status)
	assert.Equal(t, model.BookingCancelled, f.store.Booking(after1.ID).Status)
	assert.Equal(t, model.BookingCancelled, f.store.Booking(after2.ID).Status)
	assert.Equal(t, []string{model.NotifyBookingsReset}, kinds(f.store.AllNotifications(), f.coach.ID))
	assert.Empty(t, kinds(f.store.AllNotifications(), f.exco.ID))
}

func TestRemindResetNotifiesCoaches(t *testing.T) {
	f := newFixture(t)
	n := f.sweeper.RemindReset(context.Background(), mustAt(t, "2025-03-09", "20:00"))
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{model.NotifyResetReminder}, kinds(f.store.AllNotifications(), f.coach.ID))
}

func TestSweepReleasesOnceAfterEnd(t *testing.T) {
	f := newFixture(t)
	nets := f.store.AddEquipment(model.Equipment{Name: "Net", QuantityTotal: 4, QuantityAvailable: 1, IsActive: true})
	done := f.store.AddBooking(model.Booking{
		FacilityID: f.court.ID, RequesterID: f.coach.ID, Status: model.BookingApproved,
		StartAt: mustAt(t, "2025-03-10", "08:00"), EndAt: mustAt(t, "2025-03-10", "10:00"),
		Equipment: []model.EquipmentLine{{EquipmentID: nets.ID, Quantity: 2}},
	})
	running := f.store.AddBooking(model.Booking{
		FacilityID: f.court.ID, RequesterID: f.coach.ID, Status: model.BookingApproved,
		StartAt: mustAt(t, "2025-03-10", "09:00"), EndAt: mustAt(t, "2025-03-10", "11:00"),
		Equipment: []model.EquipmentLine{{EquipmentID: nets.ID, Quantity: 1}},
	})
	now := mustAt(t, "2025-03-10", "10:00")

	res, err := f.sweeper.ReleaseElapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Scanned: 1, Released: 1}, res)
	assert.Equal(t, 3, f.store.Equipment(nets.ID).QuantityAvailable)
	assert.True(t, f.store.Booking(done.ID).EquipmentReleased)
	assert.False(t, f.store.Booking(running.ID).EquipmentReleased)

	res, err = f.sweeper.ReleaseElapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, res.Released)
	assert.Equal(t, 3, f.store.Equipment(nets.ID).QuantityAvailable)
}

func TestDamageLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := NewEquipmentService(f.store.Ledger(), zap.NewNop())
	svc.Now = func() time.Time { return mustAt(t, "2025-03-10", "12:00") }
	rackets := f.store.AddEquipment(model.Equipment{Name: "Racket", QuantityTotal: 5, QuantityAvailable: 5, IsActive: true})
	ctx := context.Background()

	_, err := svc.ReportDamage(ctx, DamageInput{EquipmentID: rackets.ID, ReporterID: f.coach.ID})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeInvalidQuantity, ve.Code)

	r1, err := svc.ReportDamage(ctx, DamageInput{EquipmentID: rackets.ID, ReporterID: f.coach.ID, Quantity: 2, Severity: model.SeverityHigh})
	require.NoError(t, err)
	e := f.store.Equipment(rackets.ID)
	assert.Equal(t, 2, e.QuantityDamaged)
	assert.Equal(t, 3, e.QuantityAvailable)

	r2, err := svc.ReportDamage(ctx, DamageInput{EquipmentID: rackets.ID, ReporterID: f.coach.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, model.SeverityLow, r2.Severity)

	_, err = svc.ReportDamage(ctx, DamageInput{EquipmentID: rackets.ID, ReporterID: f.coach.ID, Quantity: 3})
	require.ErrorIs(t, err, repository.ErrInsufficientStock)

	open, err := svc.ListReports(ctx, model.DamageReported)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	got, err := svc.ResolveDamage(ctx, r1.ID, f.exco.ID, "")
	require.NoError(t, err)
	require.NotNil(t, got.Resolution)
	assert.Equal(t, model.ResolutionRepaired, *got.Resolution)
	assert.Equal(t, 4, f.store.Equipment(rackets.ID).QuantityAvailable)

	_, err = svc.ResolveDamage(ctx, r2.ID, f.exco.ID, model.ResolutionWrittenOff)
	require.NoError(t, err)
	e = f.store.Equipment(rackets.ID)
	assert.Equal(t, 4, e.QuantityTotal)
	assert.Zero(t, e.QuantityDamaged)
	assert.Equal(t, 4, e.QuantityAvailable)

	_, err = svc.ResolveDamage(ctx, r2.ID, f.exco.ID, model.ResolutionRepaired)
	require.ErrorIs(t, err, repository.ErrAlreadyResolved)
	_, err = svc.ResolveDamage(ctx, r2.ID, f.exco.ID, "lost")
	require.ErrorAs(t, err, &ve)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.NotificationEvent
	err    error
}

func (p *recordingPublisher) PublishNotification(_ context.Context, ev queue.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func TestStoreNotifierPersistsThenPublishes(t *testing.T) {
	st := memstore.New()
	pub := &recordingPublisher{}
	n := &StoreNotifier{Store: st.Notifications(), Publisher: pub}

	err := n.Notify(context.Background(), model.Notification{UserID: 7, Kind: model.NotifyBookingApproved, Title: "ok"})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	stored := st.AllNotifications()
	require.Len(t, stored, 1)
	assert.Equal(t, stored[0].ID, pub.events[0].NotificationID)
	assert.NotEmpty(t, pub.events[0].EventID)

	pub.err = errors.New("channel closed")
	err = n.Notify(context.Background(), model.Notification{UserID: 7, Kind: model.NotifyBookingRejected})
	require.Error(t, err)
	assert.Len(t, st.AllNotifications(), 2)
}

func TestAsyncNotifierDropsWhenFull(t *testing.T) {
	started := make(chan struct{}, 1)
	unblock := make(chan struct{})
	var (
		mu        sync.Mutex
		delivered int
	)
	next := NotifierFunc(func(context.Context, model.Notification) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-unblock
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})
	a := NewAsyncNotifier(next, zap.NewNop(), 1, 1, time.Second)

	require.NoError(t, a.Notify(context.Background(), model.Notification{UserID: 1}))
	<-started
	require.NoError(t, a.Notify(context.Background(), model.Notification{UserID: 2}))
	require.ErrorIs(t, a.Notify(context.Background(), model.Notification{UserID: 3}), ErrNotifyQueueFull)

	close(unblock)
	a.Close()
	assert.Equal(t, 2, delivered)
	require.ErrorIs(t, a.Notify(context.Background(), model.Notification{UserID: 4}), ErrNotifierClosed)
}

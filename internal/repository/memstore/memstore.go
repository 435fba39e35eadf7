// Package memstore is an in-process implementation of the booking stores.
// One mutex guards every table, which gives each method the same
// all-or-nothing behaviour the MySQL repositories get from transactions.
//
// The package is a test fixture. It backs the service, handler, router and
// jobs tests and is never imported by cmd/server or cmd/clubctl, which run
// on the MySQL repositories.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/repository"
	"github.com/iliyamo/sportsclub/internal/slot"
)

// Store holds every table. Use the accessor methods to get the typed views.
type Store struct {
	mu            sync.Mutex
	facilities    map[uint64]model.Facility
	bookings      map[uint64]model.Booking
	equipment     map[uint64]model.Equipment
	schedules     map[uint64]model.Schedule
	reports       map[uint64]model.DamageReport
	users         map[uint64]model.User
	notifications map[uint64]model.Notification
	seq           uint64

	bookingQueries int
}

func New() *Store {
	return &Store{
		facilities:    map[uint64]model.Facility{},
		bookings:      map[uint64]model.Booking{},
		equipment:     map[uint64]model.Equipment{},
		schedules:     map[uint64]model.Schedule{},
		reports:       map[uint64]model.DamageReport{},
		users:         map[uint64]model.User{},
		notifications: map[uint64]model.Notification{},
	}
}

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

// Seed helpers. They assign ids when zero and return the stored value.

func (s *Store) AddFacility(f model.Facility) model.Facility {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == 0 {
		f.ID = s.next()
	}
	if f.Status == "" {
		f.Status = model.FacilityAvailable
	}
	s.facilities[f.ID] = f
	return f
}

func (s *Store) AddEquipment(e model.Equipment) model.Equipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.next()
	}
	s.equipment[e.ID] = e
	return e
}

func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.next()
	}
	u.IsActive = true
	s.users[u.ID] = u
	return u
}

// AddBooking stores b as-is, bypassing every check.
func (s *Store) AddBooking(b model.Booking) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.next()
	}
	s.bookings[b.ID] = cloneBooking(b)
	return b
}

func (s *Store) AddSchedule(sc model.Schedule) model.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.ID == 0 {
		sc.ID = s.next()
	}
	s.schedules[sc.ID] = sc
	return sc
}

// Snapshot readers for assertions.

// BookingQueries counts overlap lookups against the bookings table.
func (s *Store) BookingQueries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookingQueries
}

func (s *Store) Equipment(id uint64) model.Equipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.equipment[id]
}

func (s *Store) Booking(id uint64) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneBooking(s.bookings[id])
}

func (s *Store) AllBookings() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) AllSchedules() []model.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Schedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) AllNotifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneBooking(b model.Booking) model.Booking {
	if b.Equipment != nil {
		b.Equipment = append([]model.EquipmentLine(nil), b.Equipment...)
	}
	return b
}

func interval(b model.Booking) slot.Interval {
	return slot.Interval{Start: b.StartAt, End: b.EndAt}
}

// locked helpers, callers hold s.mu

func (s *Store) bookingOverlap(facilityID uint64, iv slot.Interval) (uint64, bool) {
	s.bookingQueries++
	var (
		best  model.Booking
		found bool
	)
	for _, b := range s.bookings {
		if b.FacilityID != facilityID || !b.Status.Blocking() || !interval(b).Overlaps(iv) {
			continue
		}
		if !found || b.StartAt.Before(best.StartAt) || (b.StartAt.Equal(best.StartAt) && b.ID < best.ID) {
			best, found = b, true
		}
	}
	return best.ID, found
}

func (s *Store) scheduleOverlap(facilityID uint64, iv slot.Interval) (uint64, bool) {
	date, start := iv.Date(), iv.StartClock()
	end := iv.EndClock()
	if iv.End.In(slot.Location).Format(slot.DateLayout) != date {
		end = "24:00"
	}
	var (
		best  uint64
		found bool
	)
	for _, sc := range s.schedules {
		if sc.FacilityID != facilityID || sc.SessionDate != date || sc.Status != model.ScheduleApproved {
			continue
		}
		if src, ok := s.bookings[sc.BookingID]; ok && !src.Status.Blocking() {
			continue
		}
		if sc.StartTime < end && start < sc.EndTime && (!found || sc.ID < best) {
			best, found = sc.ID, true
		}
	}
	return best, found
}

func (s *Store) release(id uint64, qty int) {
	e, ok := s.equipment[id]
	if !ok || qty < 1 {
		return
	}
	e.QuantityAvailable += qty
	if e.QuantityAvailable > e.Usable() {
		e.QuantityAvailable = e.Usable()
	}
	s.equipment[id] = e
}

// Facilities is the FacilityRepo view.
func (s *Store) Facilities() *Facilities { return &Facilities{s} }

type Facilities struct{ s *Store }

func (v *Facilities) GetByID(_ context.Context, id uint64) (model.Facility, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	f, ok := v.s.facilities[id]
	if !ok {
		return model.Facility{}, repository.ErrFacilityNotFound
	}
	return f, nil
}

func (v *Facilities) List(_ context.Context) ([]model.Facility, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := make([]model.Facility, 0, len(v.s.facilities))
	for _, f := range v.s.facilities {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *Facilities) UpdateStatus(_ context.Context, id uint64, status model.FacilityStatus) (model.Facility, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	f, ok := v.s.facilities[id]
	if !ok {
		return model.Facility{}, repository.ErrFacilityNotFound
	}
	f.Status = status
	v.s.facilities[id] = f
	return f, nil
}

// Bookings is the BookingRepo view.
func (s *Store) Bookings() *Bookings { return &Bookings{s} }

type Bookings struct{ s *Store }

func (v *Bookings) FindOverlapping(_ context.Context, facilityID uint64, iv slot.Interval) (uint64, bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	id, ok := v.s.bookingOverlap(facilityID, iv)
	return id, ok, nil
}

func (v *Bookings) CreateExclusive(_ context.Context, b *model.Booking) error {
	iv, err := slot.New(b.StartAt, b.EndAt)
	if err != nil {
		return err
	}
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.facilities[b.FacilityID]
	if !ok {
		return repository.ErrFacilityNotFound
	}
	if f.Status == model.FacilityMaintenance {
		return repository.ErrFacilityInMaintenance
	}
	if id, ok := s.bookingOverlap(b.FacilityID, iv); ok {
		return &repository.BookingConflictError{BookingID: id}
	}
	if id, ok := s.scheduleOverlap(b.FacilityID, iv); ok {
		return &repository.ScheduleConflictError{ScheduleID: id}
	}

	// validate every line before touching counts so a failure leaves no trace
	need := map[uint64]int{}
	for _, l := range b.Equipment {
		e, ok := s.equipment[l.EquipmentID]
		if !ok {
			return repository.ErrEquipmentNotFound
		}
		if !e.IsActive {
			return repository.ErrEquipmentInactive
		}
		if l.Quantity < 1 {
			return repository.ErrInsufficientStock
		}
		need[l.EquipmentID] += l.Quantity
		if need[l.EquipmentID] > e.QuantityAvailable {
			return &repository.StockError{EquipmentID: e.ID, Name: e.Name, Requested: l.Quantity,
				Available: e.QuantityAvailable - (need[l.EquipmentID] - l.Quantity)}
		}
	}
	for i, l := range b.Equipment {
		e := s.equipment[l.EquipmentID]
		e.QuantityAvailable -= l.Quantity
		s.equipment[l.EquipmentID] = e
		b.Equipment[i].EquipmentName = e.Name
	}

	now := time.Now().UTC()
	b.ID = s.next()
	b.Status = model.BookingPending
	b.EquipmentReleased = false
	b.CreatedAt, b.UpdatedAt = now, now
	s.bookings[b.ID] = cloneBooking(*b)
	return nil
}

func (v *Bookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	b, ok := v.s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (v *Bookings) filter(keep func(model.Booking) bool, less func(a, b model.Booking) bool) []model.Booking {
	var out []model.Booking
	for _, b := range v.s.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byStart(a, b model.Booking) bool {
	if a.StartAt.Equal(b.StartAt) {
		return a.ID < b.ID
	}
	return a.StartAt.Before(b.StartAt)
}

func (v *Bookings) ListPending(_ context.Context) ([]model.Booking, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.filter(func(b model.Booking) bool { return b.Status == model.BookingPending },
		func(a, b model.Booking) bool { return a.ID < b.ID }), nil
}

func (v *Bookings) ListByRequester(_ context.Context, requesterID uint64, limit, offset int) ([]model.Booking, int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	all := v.filter(func(b model.Booking) bool { return b.RequesterID == requesterID },
		func(a, b model.Booking) bool { return byStart(b, a) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (v *Bookings) ListAttendanceSessions(_ context.Context, requesterID uint64) ([]model.Booking, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.filter(func(b model.Booking) bool {
		return b.Status == model.BookingApproved && model.AttendanceEligible(b.Reason) &&
			(requesterID == 0 || b.RequesterID == requesterID)
	}, byStart), nil
}

func (v *Bookings) Decide(_ context.Context, id uint64, to model.BookingStatus, approverID uint64, at time.Time) (model.Booking, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	b, ok := v.s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	ev := model.EventReject
	if to == model.BookingApproved {
		ev = model.EventApprove
	} else if to != model.BookingRejected {
		return cloneBooking(b), model.ErrInvalidTransition
	}
	next, err := model.Transition(b.Status, ev)
	if err != nil {
		return cloneBooking(b), err
	}
	b.Status = next
	b.ApproverID = &approverID
	if next == model.BookingApproved {
		t := at.UTC()
		b.ApprovedAt = &t
	}
	b.UpdatedAt = at.UTC()
	v.s.bookings[id] = b
	return cloneBooking(b), nil
}

func (v *Bookings) CancelFrom(_ context.Context, cutoff time.Time) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var n int64
	for id, b := range v.s.bookings {
		if b.StartAt.Before(cutoff) || b.Status == model.BookingCancelled {
			continue
		}
		b.Status, _ = model.Transition(b.Status, model.EventReset)
		v.s.bookings[id] = b
		n++
	}
	return n, nil
}

func (v *Bookings) ListUnreleased(_ context.Context, now time.Time) ([]model.Booking, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.filter(func(b model.Booking) bool {
		return (b.Status == model.BookingApproved || b.Status == model.BookingCancelled) &&
			!b.EquipmentReleased && !b.EndAt.After(now) && len(b.Equipment) > 0
	}, func(a, b model.Booking) bool { return a.EndAt.Before(b.EndAt) || (a.EndAt.Equal(b.EndAt) && a.ID < b.ID) }), nil
}

func (v *Bookings) MarkReleased(_ context.Context, bookingID uint64) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	b, ok := v.s.bookings[bookingID]
	if !ok || b.EquipmentReleased {
		return false, nil
	}
	b.EquipmentReleased = true
	v.s.bookings[bookingID] = b
	for _, l := range b.Equipment {
		v.s.release(l.EquipmentID, l.Quantity)
	}
	return true, nil
}

// Schedules is the ScheduleRepo view.
func (s *Store) Schedules() *Schedules { return &Schedules{s} }

type Schedules struct{ s *Store }

func (v *Schedules) FindOverlapping(_ context.Context, facilityID uint64, iv slot.Interval) (uint64, bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	id, ok := v.s.scheduleOverlap(facilityID, iv)
	return id, ok, nil
}

func (v *Schedules) CreateIfAbsent(_ context.Context, sc *model.Schedule) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.schedules {
		if existing.OwnerID == sc.OwnerID && existing.FacilityID == sc.FacilityID &&
			existing.SessionDate == sc.SessionDate && existing.StartTime == sc.StartTime {
			if src, ok := v.s.bookings[existing.BookingID]; ok && !src.Status.Blocking() {
				existing.BookingID = sc.BookingID
				existing.EndTime = sc.EndTime
				v.s.schedules[existing.ID] = existing
			}
			*sc = existing
			return false, nil
		}
	}
	if sc.Status == "" {
		sc.Status = model.ScheduleApproved
	}
	sc.ID = v.s.next()
	sc.CreatedAt = time.Now().UTC()
	v.s.schedules[sc.ID] = *sc
	return true, nil
}

func (v *Schedules) ListByOwner(_ context.Context, ownerID uint64) ([]model.Schedule, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []model.Schedule
	for _, sc := range v.s.schedules {
		if sc.OwnerID == ownerID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SessionDate != out[j].SessionDate {
			return out[i].SessionDate < out[j].SessionDate
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

// Ledger is the EquipmentRepo view.
func (s *Store) Ledger() *Ledger { return &Ledger{s} }

type Ledger struct{ s *Store }

func (v *Ledger) GetByID(_ context.Context, id uint64) (model.Equipment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.equipment[id]
	if !ok {
		return model.Equipment{}, repository.ErrEquipmentNotFound
	}
	return e, nil
}

func (v *Ledger) List(_ context.Context, onlyAvailable bool) ([]model.Equipment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []model.Equipment
	for _, e := range v.s.equipment {
		if !e.IsActive || (onlyAvailable && e.QuantityAvailable == 0) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *Ledger) Reserve(_ context.Context, id uint64, qty int) (string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.equipment[id]
	switch {
	case !ok:
		return "", repository.ErrEquipmentNotFound
	case !e.IsActive:
		return "", repository.ErrEquipmentInactive
	case qty < 1:
		return "", repository.ErrInsufficientStock
	case qty > e.QuantityAvailable:
		return "", &repository.StockError{EquipmentID: id, Name: e.Name, Requested: qty, Available: e.QuantityAvailable}
	}
	e.QuantityAvailable -= qty
	v.s.equipment[id] = e
	return e.Name, nil
}

func (v *Ledger) Release(_ context.Context, id uint64, qty int) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.release(id, qty)
	return nil
}

func (v *Ledger) ReportDamage(_ context.Context, d *model.DamageReport) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if d.QuantityDamaged < 1 {
		return repository.ErrInsufficientStock
	}
	e, ok := v.s.equipment[d.EquipmentID]
	if !ok {
		return repository.ErrEquipmentNotFound
	}
	if !e.IsActive {
		return repository.ErrEquipmentInactive
	}
	if e.QuantityDamaged+d.QuantityDamaged > e.QuantityTotal {
		return &repository.StockError{EquipmentID: e.ID, Name: e.Name, Requested: d.QuantityDamaged, Available: e.Usable()}
	}
	e.QuantityDamaged += d.QuantityDamaged
	e.QuantityAvailable -= d.QuantityDamaged
	if e.QuantityAvailable < 0 {
		e.QuantityAvailable = 0
	}
	if e.QuantityAvailable > e.Usable() {
		e.QuantityAvailable = e.Usable()
	}
	v.s.equipment[e.ID] = e

	if d.Status == "" {
		d.Status = model.DamageReported
	}
	if d.Severity == "" {
		d.Severity = model.SeverityLow
	}
	d.ID = v.s.next()
	d.CreatedAt = time.Now().UTC()
	v.s.reports[d.ID] = *d
	return nil
}

func (v *Ledger) ResolveDamage(_ context.Context, reportID, resolverID uint64, res model.Resolution, at time.Time) (model.DamageReport, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	d, ok := v.s.reports[reportID]
	if !ok {
		return model.DamageReport{}, repository.ErrReportNotFound
	}
	if d.Status == model.DamageResolved {
		return model.DamageReport{}, repository.ErrAlreadyResolved
	}
	e := v.s.equipment[d.EquipmentID]
	e.QuantityDamaged -= d.QuantityDamaged
	if e.QuantityDamaged < 0 {
		e.QuantityDamaged = 0
	}
	if res == model.ResolutionWrittenOff {
		e.QuantityTotal -= d.QuantityDamaged
		if e.QuantityTotal < 0 {
			e.QuantityTotal = 0
		}
	} else {
		e.QuantityAvailable += d.QuantityDamaged
	}
	if e.QuantityAvailable > e.Usable() {
		e.QuantityAvailable = e.Usable()
	}
	v.s.equipment[d.EquipmentID] = e

	t := at.UTC()
	d.Status = model.DamageResolved
	d.ResolvedBy = &resolverID
	d.ResolvedAt = &t
	d.Resolution = &res
	v.s.reports[reportID] = d
	return d, nil
}

func (v *Ledger) ListDamageReports(_ context.Context, status model.DamageStatus) ([]model.DamageReport, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []model.DamageReport
	for _, d := range v.s.reports {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Users is the UserRepo view.
func (s *Store) Users() *Users { return &Users{s} }

type Users struct{ s *Store }

func (v *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, ok := v.s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (v *Users) ListIDsByRole(_ context.Context, role string) ([]uint64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var ids []uint64
	for _, u := range v.s.users {
		if u.Role == role && u.IsActive {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Notifications is the NotificationRepo view.
func (s *Store) Notifications() *Notifications { return &Notifications{s} }

type Notifications struct{ s *Store }

func (v *Notifications) Create(_ context.Context, n *model.Notification) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	n.ID = v.s.next()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	v.s.notifications[n.ID] = *n
	return nil
}

func (v *Notifications) ListForUser(_ context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []model.Notification
	for _, n := range v.s.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *Notifications) MarkRead(_ context.Context, id, userID uint64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	n, ok := v.s.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotificationNotFound
	}
	n.Read = true
	v.s.notifications[id] = n
	return nil
}

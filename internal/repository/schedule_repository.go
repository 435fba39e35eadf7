package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/slot"
)

// ScheduleRepo stores sessions derived from approved bookings.
type ScheduleRepo struct {
	db *sql.DB
}

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

const scheduleColumns = `id, owner_id, facility_id, booking_id, session_date, start_time, end_time, reason, session_type, status, created_at`

func scanSchedule(sc interface{ Scan(...any) error }) (model.Schedule, error) {
	var (
		s    model.Schedule
		date time.Time
	)
	err := sc.Scan(&s.ID, &s.OwnerID, &s.FacilityID, &s.BookingID, &date, &s.StartTime, &s.EndTime,
		&s.Reason, &s.SessionType, &s.Status, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	// DATE columns arrive as UTC midnight; the calendar day is what matters.
	s.SessionDate = date.Format(slot.DateLayout)
	return s, nil
}

// FindOverlapping returns an approved session on the facility whose clock
// range overlaps iv on the same civil date. Sessions whose booking was
// rejected or cancelled no longer block.
func (r *ScheduleRepo) FindOverlapping(ctx context.Context, facilityID uint64, iv slot.Interval) (uint64, bool, error) {
	return findScheduleOverlap(ctx, r.db, facilityID, iv)
}

// CreateIfAbsent inserts s unless a row with the same
// (owner_id, facility_id, session_date, start_time) exists. Either way s is
// filled from the stored row; created reports which case happened. The
// unique key makes this a single atomic statement. An existing row whose
// booking was cancelled or rejected is moved onto s's booking.
func (r *ScheduleRepo) CreateIfAbsent(ctx context.Context, s *model.Schedule) (bool, error) {
	if s.Status == "" {
		s.Status = model.ScheduleApproved
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO schedules (owner_id, facility_id, booking_id, session_date, start_time, end_time, reason, session_type, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   id = LAST_INSERT_ID(id),
		   end_time = IF((SELECT b.status FROM bookings b WHERE b.id = schedules.booking_id) IN ('pending','approved'), end_time, VALUES(end_time)),
		   booking_id = IF((SELECT b.status FROM bookings b WHERE b.id = schedules.booking_id) IN ('pending','approved'), booking_id, VALUES(booking_id))`,
		s.OwnerID, s.FacilityID, s.BookingID, s.SessionDate, s.StartTime, s.EndTime, s.Reason, s.SessionType, s.Status)
	if err != nil {
		return false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return false, err
	}
	*s = stored
	return n == 1, nil
}

// GetByID returns one session or ErrScheduleNotFound.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (model.Schedule, error) {
	s, err := scanSchedule(r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schedule{}, ErrScheduleNotFound
	}
	return s, err
}

// ListByOwner returns a coach's sessions in date order.
func (r *ScheduleRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Schedule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE owner_id = ? ORDER BY session_date, start_time, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/slot"
)

// BookingRepo persists bookings and their equipment lines. Slot
// exclusivity is enforced here, not by callers: CreateExclusive locks the
// facility row so creators on the same facility run one at a time.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, facility_id, requester_id, requester_name, start_at, end_at, status, reason, notes, approver_id, approved_at, equipment_released, created_at, updated_at`

func scanBooking(sc interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b          model.Booking
		status     string
		notes      sql.NullString
		approverID sql.NullInt64
		approvedAt sql.NullTime
	)
	err := sc.Scan(&b.ID, &b.FacilityID, &b.RequesterID, &b.RequesterName, &b.StartAt, &b.EndAt,
		&status, &b.Reason, &notes, &approverID, &approvedAt, &b.EquipmentReleased, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	b.Status = model.BookingStatus(status)
	b.Notes = notes.String
	if approverID.Valid {
		v := uint64(approverID.Int64)
		b.ApproverID = &v
	}
	if approvedAt.Valid {
		v := approvedAt.Time
		b.ApprovedAt = &v
	}
	return b, nil
}

func queryBookings(ctx context.Context, q querier, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// attachLines loads equipment lines for every booking in one query.
func attachLines(ctx context.Context, q querier, bookings []model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	ids := make([]any, len(bookings))
	idx := make(map[uint64]int, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
		idx[b.ID] = i
	}
	rows, err := q.QueryContext(ctx,
		`SELECT booking_id, equipment_id, equipment_name, quantity, reason FROM booking_equipment
		 WHERE booking_id IN (`+placeholders(len(ids))+`) ORDER BY id`, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			bookingID uint64
			l         model.EquipmentLine
		)
		if err := rows.Scan(&bookingID, &l.EquipmentID, &l.EquipmentName, &l.Quantity, &l.Reason); err != nil {
			return err
		}
		if i, ok := idx[bookingID]; ok {
			bookings[i].Equipment = append(bookings[i].Equipment, l)
		}
	}
	return rows.Err()
}

// FindOverlapping returns the id of a pending or approved booking on the
// facility that overlaps iv.
func (r *BookingRepo) FindOverlapping(ctx context.Context, facilityID uint64, iv slot.Interval) (uint64, bool, error) {
	return findBookingOverlap(ctx, r.db, facilityID, iv)
}

// CreateExclusive re-checks the slot and writes the booking in one
// transaction:
//
//  1. lock the facility row (FOR UPDATE) and reject maintenance
//  2. reject overlap with a blocking booking or an approved schedule
//  3. take every equipment line off the shelf
//  4. insert the booking and its lines as pending
//
// Any failure rolls the whole slot back. On success b carries its new id
// and the denormalized equipment names.
func (r *BookingRepo) CreateExclusive(ctx context.Context, b *model.Booking) error {
	iv, err := slot.New(b.StartAt, b.EndAt)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM facilities WHERE id = ? FOR UPDATE`, b.FacilityID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrFacilityNotFound
	}
	if err != nil {
		return err
	}
	if model.FacilityStatus(status) == model.FacilityMaintenance {
		return ErrFacilityInMaintenance
	}

	if id, ok, err := findBookingOverlap(ctx, tx, b.FacilityID, iv); err != nil {
		return err
	} else if ok {
		return &BookingConflictError{BookingID: id}
	}
	if id, ok, err := findScheduleOverlap(ctx, tx, b.FacilityID, iv); err != nil {
		return err
	} else if ok {
		return &ScheduleConflictError{ScheduleID: id}
	}

	for i := range b.Equipment {
		name, err := reserve(ctx, tx, b.Equipment[i].EquipmentID, b.Equipment[i].Quantity)
		if err != nil {
			return err
		}
		b.Equipment[i].EquipmentName = name
	}

	b.Status = model.BookingPending
	b.EquipmentReleased = false
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (facility_id, requester_id, requester_name, start_at, end_at, status, reason, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.FacilityID, b.RequesterID, b.RequesterName, b.StartAt.UTC(), b.EndAt.UTC(), string(b.Status), b.Reason, b.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(b.Equipment) > 0 {
		query := `INSERT INTO booking_equipment (booking_id, equipment_id, equipment_name, quantity, reason) VALUES `
		args := make([]any, 0, len(b.Equipment)*5)
		for i, l := range b.Equipment {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?)"
			args = append(args, b.ID, l.EquipmentID, l.EquipmentName, l.Quantity, l.Reason)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	return nil
}

// GetByID returns a booking with its equipment lines.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	list := []model.Booking{b}
	if err := attachLines(ctx, r.db, list); err != nil {
		return model.Booking{}, err
	}
	return list[0], nil
}

// ListPending returns every booking waiting for a decision, oldest first.
func (r *BookingRepo) ListPending(ctx context.Context) ([]model.Booking, error) {
	out, err := queryBookings(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings WHERE status = 'pending' ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return out, attachLines(ctx, r.db, out)
}

// ListByRequester pages through one requester's bookings, newest slot
// first, and returns the total count.
func (r *BookingRepo) ListByRequester(ctx context.Context, requesterID uint64, limit, offset int) ([]model.Booking, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE requester_id = ?`, requesterID).Scan(&total); err != nil {
		return nil, 0, err
	}
	out, err := queryBookings(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings WHERE requester_id = ? ORDER BY start_at DESC, id DESC LIMIT ? OFFSET ?`,
		requesterID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return out, total, attachLines(ctx, r.db, out)
}

// ListAttendanceSessions returns approved bookings whose reason feeds
// attendance. A zero requesterID lists every requester's sessions.
func (r *BookingRepo) ListAttendanceSessions(ctx context.Context, requesterID uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = 'approved' AND reason IN (?, ?)`
	args := []any{model.ReasonTraining, model.ReasonTryout}
	if requesterID != 0 {
		q += ` AND requester_id = ?`
		args = append(args, requesterID)
	}
	q += ` ORDER BY start_at, id`
	return queryBookings(ctx, r.db, q, args...)
}

// Decide moves a pending booking to approved or rejected. The update is
// conditional on status = 'pending', so only one decision ever lands.
func (r *BookingRepo) Decide(ctx context.Context, id uint64, to model.BookingStatus, approverID uint64, at time.Time) (model.Booking, error) {
	var (
		res sql.Result
		err error
	)
	switch to {
	case model.BookingApproved:
		res, err = r.db.ExecContext(ctx,
			`UPDATE bookings SET status = 'approved', approver_id = ?, approved_at = ? WHERE id = ? AND status = 'pending'`,
			approverID, at.UTC(), id)
	case model.BookingRejected:
		res, err = r.db.ExecContext(ctx,
			`UPDATE bookings SET status = 'rejected', approver_id = ? WHERE id = ? AND status = 'pending'`,
			approverID, id)
	default:
		return model.Booking{}, model.ErrInvalidTransition
	}
	if err != nil {
		return model.Booking{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Booking{}, err
	}
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if n == 0 {
		return b, ErrAlreadyDecided
	}
	return b, nil
}

// CancelFrom cancels every booking starting at or after cutoff regardless
// of its status. Bookings that started earlier are untouched.
func (r *BookingRepo) CancelFrom(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled' WHERE start_at >= ? AND status <> 'cancelled'`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListUnreleased returns approved or cancelled bookings that ended at or
// before now and still hold equipment.
func (r *BookingRepo) ListUnreleased(ctx context.Context, now time.Time) ([]model.Booking, error) {
	out, err := queryBookings(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings b
		 WHERE b.status IN ('approved','cancelled') AND b.equipment_released = 0 AND b.end_at <= ?
		   AND EXISTS (SELECT 1 FROM booking_equipment e WHERE e.booking_id = b.id)
		 ORDER BY b.end_at, b.id`, now.UTC())
	if err != nil {
		return nil, err
	}
	return out, attachLines(ctx, r.db, out)
}

// MarkReleased flips equipment_released and returns the booking's units to
// the ledger in one transaction. It reports false when another sweep got
// there first, which makes re-running a sweep a no-op.
func (r *BookingRepo) MarkReleased(ctx context.Context, bookingID uint64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET equipment_released = 1 WHERE id = ? AND equipment_released = 0`, bookingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT equipment_id, quantity FROM booking_equipment WHERE booking_id = ?`, bookingID)
	if err != nil {
		return false, err
	}
	type line struct {
		id  uint64
		qty int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.id, &l.qty); err != nil {
			rows.Close()
			return false, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	for _, l := range lines {
		if err := release(ctx, tx, l.id, l.qty); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/sportsclub/internal/slot"
)

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// findBookingOverlap returns the earliest pending or approved booking on the
// facility whose interval overlaps iv.
func findBookingOverlap(ctx context.Context, q querier, facilityID uint64, iv slot.Interval) (uint64, bool, error) {
	const query = `SELECT id FROM bookings
		WHERE facility_id = ? AND status IN ('pending','approved') AND start_at < ? AND end_at > ?
		ORDER BY start_at, id LIMIT 1`
	var id uint64
	err := q.QueryRowContext(ctx, query, facilityID, iv.End.UTC(), iv.Start.UTC()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// findScheduleOverlap compares HH:mm strings on the interval's civil date.
// Zero-padded clocks sort the same way as the times they name. A session
// only blocks while its source booking is still pending or approved, so a
// reset frees the slot without touching the schedule row.
func findScheduleOverlap(ctx context.Context, q querier, facilityID uint64, iv slot.Interval) (uint64, bool, error) {
	const query = `SELECT s.id FROM schedules s
		LEFT JOIN bookings b ON b.id = s.booking_id
		WHERE s.facility_id = ? AND s.session_date = ? AND s.status = 'approved'
		  AND s.start_time < ? AND s.end_time > ?
		  AND (b.id IS NULL OR b.status IN ('pending','approved'))
		ORDER BY s.start_time, s.id LIMIT 1`
	var id uint64
	err := q.QueryRowContext(ctx, query, facilityID, iv.Date(), endClock(iv), iv.StartClock()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// endClock clamps an interval that runs past midnight to the end of its
// start day.
func endClock(iv slot.Interval) string {
	if iv.End.In(slot.Location).Format(slot.DateLayout) != iv.Date() {
		return "24:00"
	}
	return iv.EndClock()
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

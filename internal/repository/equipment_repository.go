package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/sportsclub/internal/model"
)

// EquipmentRepo is the resource ledger. Every count change is a single
// conditional UPDATE so concurrent writers cannot push a pool below zero
// or above its usable ceiling.
type EquipmentRepo struct {
	db *sql.DB
}

func NewEquipmentRepo(db *sql.DB) *EquipmentRepo { return &EquipmentRepo{db: db} }

const equipmentColumns = `id, name, category, quantity_total, quantity_available, quantity_damaged, is_active, created_at, updated_at`

func scanEquipment(sc interface{ Scan(...any) error }) (model.Equipment, error) {
	var e model.Equipment
	err := sc.Scan(&e.ID, &e.Name, &e.Category, &e.QuantityTotal, &e.QuantityAvailable,
		&e.QuantityDamaged, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func getEquipment(ctx context.Context, q querier, id uint64) (model.Equipment, error) {
	e, err := scanEquipment(q.QueryRowContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Equipment{}, ErrEquipmentNotFound
	}
	return e, err
}

// GetByID returns a single pool.
func (r *EquipmentRepo) GetByID(ctx context.Context, id uint64) (model.Equipment, error) {
	return getEquipment(ctx, r.db, id)
}

// List returns active pools ordered by name. With onlyAvailable set, pools
// with nothing on the shelf are skipped.
func (r *EquipmentRepo) List(ctx context.Context, onlyAvailable bool) ([]model.Equipment, error) {
	q := `SELECT ` + equipmentColumns + ` FROM equipment WHERE is_active = 1`
	if onlyAvailable {
		q += ` AND quantity_available > 0`
	}
	q += ` ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// reserve takes qty units off the shelf and returns the pool name.
func reserve(ctx context.Context, q querier, id uint64, qty int) (string, error) {
	if qty < 1 {
		return "", fmt.Errorf("reserve %d units: %w", qty, ErrInsufficientStock)
	}
	res, err := q.ExecContext(ctx,
		`UPDATE equipment SET quantity_available = quantity_available - ?
		 WHERE id = ? AND is_active = 1 AND quantity_available >= ?`, qty, id, qty)
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	e, err := getEquipment(ctx, q, id)
	if err != nil {
		return "", err
	}
	if n == 1 {
		return e.Name, nil
	}
	if !e.IsActive {
		return "", ErrEquipmentInactive
	}
	return "", &StockError{EquipmentID: id, Name: e.Name, Requested: qty, Available: e.QuantityAvailable}
}

// release puts qty units back, never above quantity_total - quantity_damaged.
// A pool that has since been deleted is ignored.
func release(ctx context.Context, q querier, id uint64, qty int) error {
	if qty < 1 {
		return nil
	}
	_, err := q.ExecContext(ctx,
		`UPDATE equipment SET quantity_available = LEAST(quantity_available + ?, quantity_total - quantity_damaged)
		 WHERE id = ?`, qty, id)
	return err
}

// Reserve is the stand-alone ledger decrement. Booking creation performs
// the same statement inside its own transaction.
func (r *EquipmentRepo) Reserve(ctx context.Context, id uint64, qty int) (string, error) {
	return reserve(ctx, r.db, id, qty)
}

// Release is the stand-alone clamped increment.
func (r *EquipmentRepo) Release(ctx context.Context, id uint64, qty int) error {
	return release(ctx, r.db, id, qty)
}

const damageColumns = `id, equipment_id, reporter_id, booking_id, quantity_damaged, description, severity, evidence, status, resolved_by, resolved_at, resolution, created_at`

func scanDamageReport(sc interface{ Scan(...any) error }) (model.DamageReport, error) {
	var (
		d          model.DamageReport
		bookingID  sql.NullInt64
		resolvedBy sql.NullInt64
		resolvedAt sql.NullTime
		resolution sql.NullString
		severity   string
		status     string
	)
	err := sc.Scan(&d.ID, &d.EquipmentID, &d.ReporterID, &bookingID, &d.QuantityDamaged, &d.Description,
		&severity, &d.Evidence, &status, &resolvedBy, &resolvedAt, &resolution, &d.CreatedAt)
	if err != nil {
		return d, err
	}
	d.Severity = model.DamageSeverity(severity)
	d.Status = model.DamageStatus(status)
	if bookingID.Valid {
		v := uint64(bookingID.Int64)
		d.BookingID = &v
	}
	if resolvedBy.Valid {
		v := uint64(resolvedBy.Int64)
		d.ResolvedBy = &v
	}
	if resolvedAt.Valid {
		v := resolvedAt.Time
		d.ResolvedAt = &v
	}
	if resolution.Valid {
		v := model.Resolution(resolution.String)
		d.Resolution = &v
	}
	return d, nil
}

// ReportDamage moves units into the damaged count and records the report
// in one transaction. Units still on loan are covered by the release clamp,
// so available drops by at most what is on the shelf.
func (r *EquipmentRepo) ReportDamage(ctx context.Context, d *model.DamageReport) error {
	if d.QuantityDamaged < 1 {
		return fmt.Errorf("report %d units: %w", d.QuantityDamaged, ErrInsufficientStock)
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

	res, err := tx.ExecContext(ctx,
		`UPDATE equipment SET quantity_damaged = quantity_damaged + ?,
		 quantity_available = LEAST(GREATEST(quantity_available - ?, 0), quantity_total - quantity_damaged)
		 WHERE id = ? AND is_active = 1 AND quantity_damaged + ? <= quantity_total`,
		d.QuantityDamaged, d.QuantityDamaged, d.EquipmentID, d.QuantityDamaged)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		e, err := getEquipment(ctx, tx, d.EquipmentID)
		if err != nil {
			return err
		}
		if !e.IsActive {
			return ErrEquipmentInactive
		}
		return &StockError{EquipmentID: e.ID, Name: e.Name, Requested: d.QuantityDamaged, Available: e.Usable()}
	}

	if d.Status == "" {
		d.Status = model.DamageReported
	}
	if d.Severity == "" {
		d.Severity = model.SeverityLow
	}
	var bookingID any
	if d.BookingID != nil {
		bookingID = *d.BookingID
	}
	ins, err := tx.ExecContext(ctx,
		`INSERT INTO damage_reports (equipment_id, reporter_id, booking_id, quantity_damaged, description, severity, evidence, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.EquipmentID, d.ReporterID, bookingID, d.QuantityDamaged, d.Description, string(d.Severity), d.Evidence, string(d.Status))
	if err != nil {
		return err
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ResolveDamage closes a report and reverses its count change. Repaired
// units go back on the shelf; written-off units leave the pool.
func (r *EquipmentRepo) ResolveDamage(ctx context.Context, reportID, resolverID uint64, resolution model.Resolution, at time.Time) (model.DamageReport, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.DamageReport{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	d, err := scanDamageReport(tx.QueryRowContext(ctx,
		`SELECT `+damageColumns+` FROM damage_reports WHERE id = ? FOR UPDATE`, reportID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.DamageReport{}, ErrReportNotFound
	}
	if err != nil {
		return model.DamageReport{}, err
	}
	if d.Status == model.DamageResolved {
		return model.DamageReport{}, ErrAlreadyResolved
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE damage_reports SET status = 'resolved', resolved_by = ?, resolved_at = ?, resolution = ?
		 WHERE id = ? AND status = 'reported'`, resolverID, at.UTC(), string(resolution), reportID)
	if err != nil {
		return model.DamageReport{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.DamageReport{}, err
	} else if n == 0 {
		return model.DamageReport{}, ErrAlreadyResolved
	}

	// MySQL evaluates single-table assignments left to right, so later
	// expressions see the updated quantity_damaged.
	switch resolution {
	case model.ResolutionWrittenOff:
		_, err = tx.ExecContext(ctx,
			`UPDATE equipment SET quantity_damaged = GREATEST(quantity_damaged - ?, 0),
			 quantity_total = GREATEST(quantity_total - ?, 0),
			 quantity_available = LEAST(quantity_available, quantity_total - quantity_damaged)
			 WHERE id = ?`, d.QuantityDamaged, d.QuantityDamaged, d.EquipmentID)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE equipment SET quantity_damaged = GREATEST(quantity_damaged - ?, 0),
			 quantity_available = LEAST(quantity_available + ?, quantity_total - quantity_damaged)
			 WHERE id = ?`, d.QuantityDamaged, d.QuantityDamaged, d.EquipmentID)
	}
	if err != nil {
		return model.DamageReport{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.DamageReport{}, err
	}
	committed = true

	t := at.UTC()
	d.Status = model.DamageResolved
	d.ResolvedBy = &resolverID
	d.ResolvedAt = &t
	d.Resolution = &resolution
	return d, nil
}

// GetDamageReport returns one report.
func (r *EquipmentRepo) GetDamageReport(ctx context.Context, id uint64) (model.DamageReport, error) {
	d, err := scanDamageReport(r.db.QueryRowContext(ctx,
		`SELECT `+damageColumns+` FROM damage_reports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.DamageReport{}, ErrReportNotFound
	}
	return d, err
}

// ListDamageReports returns reports newest first, optionally filtered by status.
func (r *EquipmentRepo) ListDamageReports(ctx context.Context, status model.DamageStatus) ([]model.DamageReport, error) {
	q := `SELECT ` + damageColumns + ` FROM damage_reports`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DamageReport
	for rows.Next() {
		d, err := scanDamageReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

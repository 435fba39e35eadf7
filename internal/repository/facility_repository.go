package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/sportsclub/internal/model"
)

// FacilityRepo reads venues and flips their status.
type FacilityRepo struct {
	db *sql.DB
}

func NewFacilityRepo(db *sql.DB) *FacilityRepo { return &FacilityRepo{db: db} }

const facilityColumns = `id, name, type, location, capacity, status, created_at, updated_at`

func scanFacility(sc interface{ Scan(...any) error }) (model.Facility, error) {
	var (
		f      model.Facility
		status string
	)
	err := sc.Scan(&f.ID, &f.Name, &f.Type, &f.Location, &f.Capacity, &status, &f.CreatedAt, &f.UpdatedAt)
	f.Status = model.FacilityStatus(status)
	return f, err
}

// GetByID returns ErrFacilityNotFound for an unknown id.
func (r *FacilityRepo) GetByID(ctx context.Context, id uint64) (model.Facility, error) {
	f, err := scanFacility(r.db.QueryRowContext(ctx, `SELECT `+facilityColumns+` FROM facilities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Facility{}, ErrFacilityNotFound
	}
	return f, err
}

func (r *FacilityRepo) List(ctx context.Context) ([]model.Facility, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+facilityColumns+` FROM facilities ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateStatus sets the facility status and returns the stored row.
func (r *FacilityRepo) UpdateStatus(ctx context.Context, id uint64, status model.FacilityStatus) (model.Facility, error) {
	if _, err := r.db.ExecContext(ctx, `UPDATE facilities SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return model.Facility{}, err
	}
	return r.GetByID(ctx, id)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries registration input. NRICEncrypted must already be sealed.
type NewUser struct {
	Email         string
	Password      string
	Role          string
	FirstName     string
	LastName      string
	NRICEncrypted string
}

const userColumns = `id, email, password_hash, role, first_name, last_name, nric_encrypted, is_active, created_at, updated_at`

func scanUser(sc interface{ Scan(...any) error }) (model.User, error) {
	var (
		u    model.User
		nric sql.NullString
	)
	err := sc.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName, &nric,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	u.NRICEncrypted = nric.String
	return u, err
}

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	var nric any
	if nu.NRICEncrypted != "" {
		nric = nu.NRICEncrypted
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, first_name, last_name, nric_encrypted) VALUES (?,?,?,?,?,?)",
		email, hash, nu.Role, strings.TrimSpace(nu.FirstName), strings.TrimSpace(nu.LastName), nric)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// ListIDsByRole returns the ids of active users with the given role.
func (r *UserRepo) ListIDsByRole(ctx context.Context, role string) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id FROM users WHERE role=? AND is_active=1 ORDER BY id", role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetRole changes the role of the user with the given email.
func (r *UserRepo) SetRole(ctx context.Context, email, role string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE email=?",
		role, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// zero rows also means the role was already set
	if _, err := r.GetByEmail(ctx, email); errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	} else if err != nil {
		return err
	}
	return nil
}

package model

import "time"

// Roles carried in the access token.
const (
	RoleStudent = "student"
	RoleCoach   = "coach"
	RoleExco    = "exco"
)

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	return r == RoleStudent || r == RoleCoach || r == RoleExco
}

// User represents a row in the `users` table.
//
// Fields:
//  ID            – primary key identifier of the user.
//  Email         – unique, lower-cased address.
//  PasswordHash  – bcrypt hash.
//  Role          – student, coach or exco.
//  FirstName     – given name.
//  LastName      – family name.
//  NRICEncrypted – sealed national id, empty when not supplied.
//  IsActive      – whether the account may log in.
type User struct {
	ID            uint64
	Email         string
	PasswordHash  string
	Role          string
	FirstName     string
	LastName      string
	NRICEncrypted string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName joins first and last name for display on bookings.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 of the raw token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

package types

import (
	"strings"
	"time"
)

// Role is the authorization level carried by a user and by the tokens issued to them.
type Role string

const (
	// RoleAdmin may create, update and delete series and measurements.
	RoleAdmin Role = "admin"

	// RoleViewer has read-only access.
	RoleViewer Role = "viewer"
)

// ParseRole normalises a role name. Unknown names are returned as-is and
// fail IsValid.
func ParseRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name of the user.
	Username string `json:"username" db:"username"`

	// Role indicates the user's authorization level (admin or viewer).
	Role Role `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

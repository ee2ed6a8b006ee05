package domain

import (
	"fmt"
	"time"
)

// Role is a privilege tier carried in tokens and stored on users.
// Values are bare enum names and match case-sensitively.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole converts s into a Role. Unknown values are rejected rather than
// mapped to a default.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Grants reports whether holding r also grants other. ADMIN grants USER.
func (r Role) Grants(other Role) bool {
	if r == other {
		return r.Valid()
	}
	return r == RoleAdmin && other == RoleUser
}

// User models a registered account.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user currently holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

package model

import (
	"slices"
	"time"
)

// User represents an application user record as stored in the
// `users` table, with role memberships loaded from `user_roles`.
// The same struct is the snapshot kept by the user cache and the
// principal attached to authenticated requests, so it carries json
// tags for the cache encoding.  PasswordHash is never serialized.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name.
//	PasswordHash – bcrypt hashed password.
//	IsActive     – inactive users cannot log in, refresh or authenticate.
//	Roles        – role names (e.g. admin, member).
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the user is a member of role.
func (u *User) HasRole(role string) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

// Role names used by the HTTP surface.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

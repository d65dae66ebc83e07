package auth

import "time"

// Roles a user can hold. Role gates the /admin routes.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a reviewer or administrator account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user may reach admin routes.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasPassword reports whether the account logs in with a password
// instead of a one-time code.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// Session is a server-side login session. The client cookie carries only
// the opaque token.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool { return !s.ExpiresAt.After(now) }

// LoginCode is a hashed one-time passcode issued for a login attempt.
// The plaintext code is never persisted.
type LoginCode struct {
	ID        string
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	UsedAt    time.Time
	CreatedAt time.Time
}

// Used reports whether the code has already been consumed.
func (c *LoginCode) Used() bool { return !c.UsedAt.IsZero() }

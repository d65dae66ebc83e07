package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users() UserStore
	Sessions() SessionStore
	LoginCodes() LoginCodeStore
}

// UserStore manages user accounts. Emails are stored lowercased and are
// unique.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// SessionStore manages server-side sessions keyed by opaque token.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, token string) (*Session, error)
	// Delete is idempotent: removing an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}

// LoginCodeStore manages one-time login codes.
type LoginCodeStore interface {
	Create(ctx context.Context, c *LoginCode) error
	// LatestActive returns the most recently created code for the user that
	// is unused and unexpired at the given instant, or ErrNotFound.
	LatestActive(ctx context.Context, userID string, now time.Time) (*LoginCode, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
}

package auth

import (
	"context"
	"errors"
	"time"

	"listencheck.org/internal/ids"
)

// Service implements the authentication lifecycle: one-time codes, password
// logins and server-side sessions.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// LookupOrCreateByEmail finds the user for a normalized email, creating a
// fresh active reviewer account on first login attempt. The second return
// value reports whether the user was just created.
func (s *Service) LookupOrCreateByEmail(ctx context.Context, email string) (*User, bool, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return nil, false, ErrInvalidInput
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	user = &User{
		ID:     ids.New(),
		Email:  email,
		Role:   RoleUser,
		Active: true,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// AuthenticatePassword checks a password login. It returns ErrBadCredential
// for unknown users, passwordless accounts and wrong passwords alike, and
// ErrInactive for deactivated accounts.
func (s *Service) AuthenticatePassword(ctx context.Context, email, password string) (*User, error) {
	user, err := s.store.Users().FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBadCredential
	}
	if err != nil {
		return nil, err
	}
	if !user.HasPassword() {
		return nil, ErrBadCredential
	}
	if !user.Active {
		return nil, ErrInactive
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrBadCredential
	}
	return user, nil
}

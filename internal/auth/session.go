package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionTTL is the server-side session lifetime, mirrored by the cookie
// max-age.
const SessionTTL = 30 * 24 * time.Hour

// CreateSession mints a random session token for the user and persists it.
func (s *Service) CreateSession(ctx context.Context, userID string) (string, error) {
	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.now().Add(SessionTTL),
	}
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return "", err
	}
	return sess.Token, nil
}

// ResolveSession returns the user behind a session token, or (nil, nil) when
// the token is unknown, the session has expired, or the user has been
// deactivated. Absence is "not logged in", not an error.
func (s *Service) ResolveSession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := s.store.Sessions().Find(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		return nil, nil
	}

	user, err := s.store.Users().Find(ctx, sess.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, nil
	}
	return user, nil
}

// DestroySession removes a session. Destroying a nonexistent session is not
// an error.
func (s *Service) DestroySession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.Sessions().Delete(ctx, token)
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"listencheck.org/internal/ids"
)

// Users lists all accounts newest-first.
func (s *Service) Users(ctx context.Context) ([]*User, error) {
	return s.store.Users().List(ctx)
}

// User fetches an account by id.
func (s *Service) User(ctx context.Context, id string) (*User, error) {
	return s.store.Users().Find(ctx, id)
}

// CreateUser provisions an account on behalf of an administrator. Password is
// optional; accounts without one log in via one-time codes.
func (s *Service) CreateUser(ctx context.Context, email, name, role, password string) (*User, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return nil, fmt.Errorf("%w: a valid email address is required", ErrInvalidInput)
	}
	if err := validRole(role); err != nil {
		return nil, err
	}

	u := &User{
		ID:     ids.New(),
		Email:  email,
		Name:   name,
		Role:   role,
		Active: true,
	}
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: a user with this email already exists", ErrAlreadyExists)
		}
		return nil, err
	}
	return u, nil
}

// UpdateUser changes name and role.
func (s *Service) UpdateUser(ctx context.Context, id, name, role string) (*User, error) {
	if err := validRole(role); err != nil {
		return nil, err
	}
	u, err := s.store.Users().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name = name
	u.Role = role
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetUserActive deactivates or reactivates an account. Deactivation takes
// effect on the user's next request; their open sessions resolve to nothing.
func (s *Service) SetUserActive(ctx context.Context, id string, active bool) (*User, error) {
	u, err := s.store.Users().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Active = active
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes an account, returning the deleted record for audit
// metadata.
func (s *Service) DeleteUser(ctx context.Context, id string) (*User, error) {
	u, err := s.store.Users().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureAdmin seeds the bootstrap administrator from configuration: creates
// the account when missing, and backfills a password onto an existing
// passwordless account. Called once at startup.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, nil
	}
	u, err := s.store.Users().FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return s.CreateUser(ctx, email, "Admin", RoleAdmin, password)
	}
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
		if err := s.store.Users().Update(ctx, u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func validRole(role string) error {
	switch role {
	case RoleUser, RoleAdmin:
		return nil
	default:
		return fmt.Errorf("%w: role must be user or admin", ErrInvalidInput)
	}
}

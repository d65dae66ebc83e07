package auth

import "errors"

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
	ErrInactive      = errors.New("auth: account deactivated")
	ErrBadCredential = errors.New("auth: invalid credentials")
)

package review

import "errors"

var (
	ErrNotFound        = errors.New("review: not found")
	ErrAlreadyExists   = errors.New("review: already exists")
	ErrInvalidInput    = errors.New("review: invalid input")
	ErrAlreadyReviewed = errors.New("review: transcript already reviewed")
	// ErrAllCaughtUp signals an empty pending queue; callers render the
	// "all caught up" terminal state rather than an error page.
	ErrAllCaughtUp = errors.New("review: all caught up")
)

package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"listencheck.org/internal/ids"
)

// Service implements the review workflow and label administration over a
// Store. Two reviewers racing on the same transcript resolve to
// last-write-wins on the status transition; the service targets a
// single-operator deployment and carries no optimistic version column.
type Service struct {
	store Store
}

// NewService constructs a Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// NextPending returns the oldest pending transcript, or ErrAllCaughtUp when
// the queue is empty.
func (s *Service) NextPending(ctx context.Context) (*Transcript, error) {
	t, err := s.store.Transcripts().NextPending(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAllCaughtUp
	}
	return t, err
}

// Transcript fetches a transcript by id.
func (s *Service) Transcript(ctx context.Context, id string) (*Transcript, error) {
	return s.store.Transcripts().Find(ctx, id)
}

// MarkCorrect persists the reviewer's correct flag immediately as its own
// single-column update. Toggling twice restores the prior persisted value.
func (s *Service) MarkCorrect(ctx context.Context, id string, marked bool) error {
	return s.store.Transcripts().SetMarkedCorrect(ctx, id, marked)
}

// Submit records the reviewer's final decision: status becomes completed,
// the reviewer and labels are recorded, and when the submitted text differs
// from the original it is stored in EditedText with the original untouched.
// The status transition happens at most once; a transcript that already left
// pending yields ErrAlreadyReviewed.
func (s *Service) Submit(ctx context.Context, id, reviewerID, submittedText string, labels []string) (*Transcript, error) {
	t, err := s.store.Transcripts().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusPending {
		return nil, ErrAlreadyReviewed
	}

	edited := ""
	if submittedText != t.OriginalText {
		edited = submittedText
	}
	if err := s.store.Transcripts().Complete(ctx, id, reviewerID, edited, labels); err != nil {
		return nil, err
	}
	return s.store.Transcripts().Find(ctx, id)
}

// Skip moves a pending transcript to skipped without touching its text.
func (s *Service) Skip(ctx context.Context, id, reviewerID string) (*Transcript, error) {
	if err := s.store.Transcripts().Skip(ctx, id, reviewerID); err != nil {
		return nil, err
	}
	return s.store.Transcripts().Find(ctx, id)
}

// Stats returns per-status transcript counts plus the total.
func (s *Service) Stats(ctx context.Context) (map[string]int, int, error) {
	byStatus, err := s.store.Transcripts().CountByStatus(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	for _, n := range byStatus {
		total += n
	}
	return byStatus, total, nil
}

// Labels lists all labels newest-first with usage counts.
func (s *Service) Labels(ctx context.Context) ([]*Label, error) {
	return s.store.Labels().List(ctx)
}

// ActiveLabels lists labels offered to reviewers.
func (s *Service) ActiveLabels(ctx context.Context) ([]*Label, error) {
	return s.store.Labels().ListActive(ctx)
}

// Label fetches a label by id.
func (s *Service) Label(ctx context.Context, id string) (*Label, error) {
	return s.store.Labels().Find(ctx, id)
}

// CreateLabel validates and creates a label. Name must be unique; a shortcut,
// when present, is lowercased, must be a single character and unique across
// all labels.
func (s *Service) CreateLabel(ctx context.Context, name, description, shortcut string, active bool) (*Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: label name is required", ErrInvalidInput)
	}
	shortcut, err := s.normalizeShortcut(ctx, shortcut, "")
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Labels().FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: label with this name already exists", ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	l := &Label{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Shortcut:    shortcut,
		Active:      active,
	}
	if err := s.store.Labels().Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// UpdateLabel validates and applies changes to an existing label.
func (s *Service) UpdateLabel(ctx context.Context, id, name, description, shortcut string, active bool) (*Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: label name is required", ErrInvalidInput)
	}
	l, err := s.store.Labels().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	shortcut, err = s.normalizeShortcut(ctx, shortcut, id)
	if err != nil {
		return nil, err
	}
	if other, err := s.store.Labels().FindByName(ctx, name); err == nil && other.ID != id {
		return nil, fmt.Errorf("%w: another label with this name already exists", ErrAlreadyExists)
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	l.Name = name
	l.Description = strings.TrimSpace(description)
	l.Shortcut = shortcut
	l.Active = active
	if err := s.store.Labels().Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// DeleteLabel removes a label and returns the deleted record for audit
// metadata. Deleting an in-use label is allowed; confirmation is a UI
// concern.
func (s *Service) DeleteLabel(ctx context.Context, id string) (*Label, error) {
	l, err := s.store.Labels().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Labels().Delete(ctx, id); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) normalizeShortcut(ctx context.Context, shortcut, excludeID string) (string, error) {
	shortcut = strings.ToLower(strings.TrimSpace(shortcut))
	if shortcut == "" {
		return "", nil
	}
	if utf8.RuneCountInString(shortcut) != 1 {
		return "", fmt.Errorf("%w: shortcut must be a single character", ErrInvalidInput)
	}
	other, err := s.store.Labels().FindByShortcut(ctx, shortcut)
	if errors.Is(err, ErrNotFound) {
		return shortcut, nil
	}
	if err != nil {
		return "", err
	}
	if other.ID != excludeID {
		return "", fmt.Errorf("%w: shortcut %q is already used by %q", ErrAlreadyExists, shortcut, other.Name)
	}
	return shortcut, nil
}

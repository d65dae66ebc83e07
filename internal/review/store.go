package review

import "context"

// Store describes persistence required by the review workflow.
type Store interface {
	Transcripts() TranscriptStore
	Labels() LabelStore
}

// TranscriptStore manages transcript rows. All mutations are single-row
// statements; ReplaceAll is the one multi-row operation and must run in a
// single transaction so concurrent readers never observe an empty table.
type TranscriptStore interface {
	Create(ctx context.Context, t *Transcript) error
	Find(ctx context.Context, id string) (*Transcript, error)
	// NextPending returns the oldest pending transcript (FIFO by creation
	// time) or ErrNotFound when the queue is empty.
	NextPending(ctx context.Context) (*Transcript, error)
	SetMarkedCorrect(ctx context.Context, id string, marked bool) error
	// Complete atomically moves a pending transcript to completed, recording
	// the reviewer, the chosen labels and (when non-empty) the edited text.
	// Returns ErrAlreadyReviewed when the transcript is no longer pending.
	Complete(ctx context.Context, id, reviewerID, editedText string, labels []string) error
	// Skip atomically moves a pending transcript to skipped.
	Skip(ctx context.Context, id, reviewerID string) error
	// ReplaceAll clears the table and inserts the given transcripts in one
	// transaction, returning the number inserted.
	ReplaceAll(ctx context.Context, ts []*Transcript) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// LabelStore manages labels. Name is unique; shortcut, when present, is a
// single character unique across all labels.
type LabelStore interface {
	Create(ctx context.Context, l *Label) error
	Find(ctx context.Context, id string) (*Label, error)
	FindByName(ctx context.Context, name string) (*Label, error)
	FindByShortcut(ctx context.Context, shortcut string) (*Label, error)
	// List returns labels newest-first with usage counts populated.
	List(ctx context.Context) ([]*Label, error)
	ListActive(ctx context.Context) ([]*Label, error)
	Update(ctx context.Context, l *Label) error
	Delete(ctx context.Context, id string) error
}

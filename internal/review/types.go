package review

import "time"

// Transcript review states. pending moves to exactly one of completed or
// skipped; both are terminal.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)

// Transcript is a single machine-transcribed audio clip awaiting review.
type Transcript struct {
	ID            string
	S3AudioKey    string
	S3TextKey     string
	OriginalText  string
	EditedText    string
	Status        string
	MarkedCorrect bool
	Labels        []string
	ReviewedByID  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Edited reports whether the reviewer changed the text. OriginalText is
// never mutated; the corrected text lives in EditedText.
func (t *Transcript) Edited() bool { return t.EditedText != "" }

// Label is an admin-managed tag reviewers attach to transcripts.
type Label struct {
	ID          string
	Name        string
	Description string
	Shortcut    string
	Active      bool
	// UsageCount is derived from transcripts referencing the label.
	UsageCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

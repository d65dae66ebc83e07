package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"listencheck.org/internal/review"
)

type transcriptStore Store

const transcriptColumns = `id, s3_audio_key, s3_text_key, original_text, edited_text,
	status, marked_correct, labels, reviewed_by_id, created_at, updated_at`

func (s *transcriptStore) Create(ctx context.Context, t *review.Transcript) error {
	if t.Status == "" {
		t.Status = review.StatusPending
	}
	labels, err := encodeLabels(t.Labels)
	if err != nil {
		return err
	}
	return s.db.QueryRowContext(ctx, `
		insert into transcripts (id, s3_audio_key, s3_text_key, original_text, edited_text, status, marked_correct, labels, reviewed_by_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8, nullif($9, ''))
		returning created_at, updated_at
	`, t.ID, t.S3AudioKey, t.S3TextKey, t.OriginalText, t.EditedText, t.Status, t.MarkedCorrect, labels, t.ReviewedByID).
		Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (s *transcriptStore) Find(ctx context.Context, id string) (*review.Transcript, error) {
	return scanTranscript(s.db.QueryRowContext(ctx,
		`select `+transcriptColumns+` from transcripts where id = $1`, id))
}

func (s *transcriptStore) NextPending(ctx context.Context) (*review.Transcript, error) {
	return scanTranscript(s.db.QueryRowContext(ctx, `
		select `+transcriptColumns+` from transcripts
		where status = $1
		order by created_at asc, id asc
		limit 1
	`, review.StatusPending))
}

func (s *transcriptStore) SetMarkedCorrect(ctx context.Context, id string, marked bool) error {
	res, err := s.db.ExecContext(ctx, `
		update transcripts set marked_correct = $2, updated_at = now() where id = $1
	`, id, marked)
	if err != nil {
		return err
	}
	return requireRow(res, review.ErrNotFound)
}

func (s *transcriptStore) Complete(ctx context.Context, id, reviewerID, editedText string, labels []string) error {
	encoded, err := encodeLabels(labels)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update transcripts
		set status = $2, reviewed_by_id = $3, edited_text = $4, labels = $5, updated_at = now()
		where id = $1 and status = $6
	`, id, review.StatusCompleted, reviewerID, editedText, encoded, review.StatusPending)
	if err != nil {
		return err
	}
	return s.requirePendingRow(ctx, res, id)
}

func (s *transcriptStore) Skip(ctx context.Context, id, reviewerID string) error {
	res, err := s.db.ExecContext(ctx, `
		update transcripts
		set status = $2, reviewed_by_id = $3, updated_at = now()
		where id = $1 and status = $4
	`, id, review.StatusSkipped, reviewerID, review.StatusPending)
	if err != nil {
		return err
	}
	return s.requirePendingRow(ctx, res, id)
}

// requirePendingRow disambiguates a zero-row guarded update: the transcript
// either does not exist or is already in a terminal state.
func (s *transcriptStore) requirePendingRow(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var status string
	err = s.db.QueryRowContext(ctx, `select status from transcripts where id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return review.ErrNotFound
	}
	if err != nil {
		return err
	}
	return review.ErrAlreadyReviewed
}

func (s *transcriptStore) ReplaceAll(ctx context.Context, ts []*review.Transcript) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from transcripts`); err != nil {
		return 0, err
	}
	for _, t := range ts {
		if t.Status == "" {
			t.Status = review.StatusPending
		}
		labels, err := encodeLabels(t.Labels)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `
			insert into transcripts (id, s3_audio_key, s3_text_key, original_text, status, labels)
			values ($1, $2, $3, $4, $5, $6)
		`, t.ID, t.S3AudioKey, t.S3TextKey, t.OriginalText, t.Status, labels); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ts), nil
}

func (s *transcriptStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`select status, count(*) from transcripts group by status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row rowScanner) (*review.Transcript, error) {
	var t review.Transcript
	var labels []byte
	var reviewedBy sql.NullString
	err := row.Scan(&t.ID, &t.S3AudioKey, &t.S3TextKey, &t.OriginalText, &t.EditedText,
		&t.Status, &t.MarkedCorrect, &labels, &reviewedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, review.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(labels) > 0 {
		if err := json.Unmarshal(labels, &t.Labels); err != nil {
			return nil, fmt.Errorf("decode labels: %w", err)
		}
	}
	if reviewedBy.Valid {
		t.ReviewedByID = reviewedBy.String
	}
	return &t, nil
}

func encodeLabels(labels []string) ([]byte, error) {
	if labels == nil {
		labels = []string{}
	}
	return json.Marshal(labels)
}

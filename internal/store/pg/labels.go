package pg

import (
	"context"
	"database/sql"
	"errors"

	"listencheck.org/internal/review"
)

type labelStore Store

// labelSelect counts usage on read; labels are referenced from the
// transcripts table by name inside a jsonb array.
const labelSelect = `
	select l.id, l.name, l.description, coalesce(l.shortcut, ''), l.active,
		(select count(*) from transcripts t where t.labels @> jsonb_build_array(l.name)) as usage_count,
		l.created_at, l.updated_at
	from labels l`

func (s *labelStore) Create(ctx context.Context, l *review.Label) error {
	err := s.db.QueryRowContext(ctx, `
		insert into labels (id, name, description, shortcut, active)
		values ($1, $2, $3, nullif($4, ''), $5)
		returning created_at, updated_at
	`, l.ID, l.Name, l.Description, l.Shortcut, l.Active).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return review.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *labelStore) Find(ctx context.Context, id string) (*review.Label, error) {
	return scanLabel(s.db.QueryRowContext(ctx, labelSelect+` where l.id = $1`, id))
}

func (s *labelStore) FindByName(ctx context.Context, name string) (*review.Label, error) {
	return scanLabel(s.db.QueryRowContext(ctx, labelSelect+` where l.name = $1`, name))
}

func (s *labelStore) FindByShortcut(ctx context.Context, shortcut string) (*review.Label, error) {
	return scanLabel(s.db.QueryRowContext(ctx, labelSelect+` where l.shortcut = $1`, shortcut))
}

func (s *labelStore) List(ctx context.Context) ([]*review.Label, error) {
	return s.list(ctx, labelSelect+` order by l.created_at desc`)
}

func (s *labelStore) ListActive(ctx context.Context) ([]*review.Label, error) {
	return s.list(ctx, labelSelect+` where l.active order by l.created_at desc`)
}

func (s *labelStore) list(ctx context.Context, query string, args ...any) ([]*review.Label, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*review.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *labelStore) Update(ctx context.Context, l *review.Label) error {
	res, err := s.db.ExecContext(ctx, `
		update labels
		set name = $2, description = $3, shortcut = nullif($4, ''), active = $5, updated_at = now()
		where id = $1
	`, l.ID, l.Name, l.Description, l.Shortcut, l.Active)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return review.ErrAlreadyExists
		}
		return err
	}
	return requireRow(res, review.ErrNotFound)
}

func (s *labelStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from labels where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, review.ErrNotFound)
}

func scanLabel(row rowScanner) (*review.Label, error) {
	var l review.Label
	err := row.Scan(&l.ID, &l.Name, &l.Description, &l.Shortcut, &l.Active,
		&l.UsageCount, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, review.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

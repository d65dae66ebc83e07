package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"listencheck.org/internal/auth"
)

type sessionStore Store

func (s *sessionStore) Create(ctx context.Context, sess *auth.Session) error {
	return s.db.QueryRowContext(ctx, `
		insert into sessions (token, user_id, expires_at)
		values ($1, $2, $3)
		returning created_at
	`, sess.Token, sess.UserID, sess.ExpiresAt).Scan(&sess.CreatedAt)
}

func (s *sessionStore) Find(ctx context.Context, token string) (*auth.Session, error) {
	var sess auth.Session
	err := s.db.QueryRowContext(ctx, `
		select token, user_id, expires_at, created_at from sessions where token = $1
	`, token).Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *sessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where token = $1`, token)
	return err
}

type loginCodeStore Store

func (s *loginCodeStore) Create(ctx context.Context, c *auth.LoginCode) error {
	return s.db.QueryRowContext(ctx, `
		insert into login_codes (id, user_id, code_hash, expires_at)
		values ($1, $2, $3, $4)
		returning created_at
	`, c.ID, c.UserID, c.CodeHash, c.ExpiresAt).Scan(&c.CreatedAt)
}

func (s *loginCodeStore) LatestActive(ctx context.Context, userID string, now time.Time) (*auth.LoginCode, error) {
	var c auth.LoginCode
	var usedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, code_hash, expires_at, used_at, created_at
		from login_codes
		where user_id = $1 and used_at is null and expires_at > $2
		order by created_at desc
		limit 1
	`, userID, now).Scan(&c.ID, &c.UserID, &c.CodeHash, &c.ExpiresAt, &usedAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		c.UsedAt = usedAt.Time
	}
	return &c, nil
}

func (s *loginCodeStore) MarkUsed(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update login_codes set used_at = $2 where id = $1 and used_at is null
	`, id, at)
	if err != nil {
		return err
	}
	return requireRow(res, auth.ErrNotFound)
}

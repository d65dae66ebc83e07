// Package pg implements the persistence interfaces on PostgreSQL via
// database/sql over the pgx stdlib driver.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"listencheck.org/internal/audit"
	"listencheck.org/internal/auth"
	"listencheck.org/internal/review"
)

const (
	pgErrUniqueViolation = "23505"
)

// Store is the shared handle behind every repository. One *sql.DB pool
// serves auth, review and activity persistence.
type Store struct {
	db *sql.DB
}

var (
	_ auth.Store   = (*Store)(nil)
	_ review.Store = (*Store)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing pool; used by tests with sqlmock.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users() auth.UserStore               { return (*userStore)(s) }
func (s *Store) Sessions() auth.SessionStore         { return (*sessionStore)(s) }
func (s *Store) LoginCodes() auth.LoginCodeStore     { return (*loginCodeStore)(s) }
func (s *Store) Transcripts() review.TranscriptStore { return (*transcriptStore)(s) }
func (s *Store) Labels() review.LabelStore           { return (*labelStore)(s) }

// Activity returns the activity log repository.
func (s *Store) Activity() audit.Store { return (*activityStore)(s) }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

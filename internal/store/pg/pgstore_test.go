package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"listencheck.org/internal/audit"
	"listencheck.org/internal/auth"
	"listencheck.org/internal/review"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserFindByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select .* from users where email").
		WithArgs("reviewer@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "role", "active", "created_at", "updated_at"}).
			AddRow("u1", "reviewer@example.com", "Rae", "", "user", true, now, now))

	u, err := store.Users().FindByEmail(context.Background(), "reviewer@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.ID != "u1" || u.Role != auth.RoleUser || !u.Active {
		t.Fatalf("unexpected user: %+v", u)
	}
	expectMet(t, mock)
}

func TestUserFindNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .* from users where id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Users().Find(context.Background(), "missing")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestSessionDeleteIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from sessions where token").
		WithArgs("unknown-token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Sessions().Delete(context.Background(), "unknown-token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	expectMet(t, mock)
}

func TestLoginCodeLatestActive(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select .* from login_codes").
		WithArgs("u1", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "code_hash", "expires_at", "used_at", "created_at"}).
			AddRow("c1", "u1", "$2a$10$hash", now.Add(5*time.Minute), nil, now))

	c, err := store.LoginCodes().LatestActive(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("LatestActive: %v", err)
	}
	if c.ID != "c1" || c.Used() {
		t.Fatalf("unexpected code: %+v", c)
	}
	expectMet(t, mock)
}

func TestTranscriptCompleteAlreadyReviewed(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update transcripts").
		WithArgs("t1", review.StatusCompleted, "u1", "fixed text", []byte(`["noise"]`), review.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select status from transcripts where id").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(review.StatusSkipped))

	err := store.Transcripts().Complete(context.Background(), "t1", "u1", "fixed text", []string{"noise"})
	if !errors.Is(err, review.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
	expectMet(t, mock)
}

func TestTranscriptCompleteNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update transcripts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select status from transcripts where id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	err := store.Transcripts().Complete(context.Background(), "ghost", "u1", "", nil)
	if !errors.Is(err, review.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestTranscriptReplaceAllRunsInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from transcripts").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("insert into transcripts").
		WithArgs("t1", "audio/transcripts/a.wav", "", "first", review.StatusPending, []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into transcripts").
		WithArgs("t2", "audio/transcripts/b.wav", "", "second", review.StatusPending, []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := store.Transcripts().ReplaceAll(context.Background(), []*review.Transcript{
		{ID: "t1", S3AudioKey: "audio/transcripts/a.wav", OriginalText: "first"},
		{ID: "t2", S3AudioKey: "audio/transcripts/b.wav", OriginalText: "second"},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}
	expectMet(t, mock)
}

func TestTranscriptReplaceAllRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from transcripts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into transcripts").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.Transcripts().ReplaceAll(context.Background(), []*review.Transcript{
		{ID: "t1", S3AudioKey: "a.wav", OriginalText: "x"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	expectMet(t, mock)
}

func TestLabelListIncludesUsageCounts(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select l.id, l.name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "shortcut", "active", "usage_count", "created_at", "updated_at"}).
			AddRow("l1", "noise", "background noise", "n", true, 3, now, now).
			AddRow("l2", "unclear", "", "", true, 0, now, now))

	labels, err := store.Labels().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(labels))
	}
	if labels[0].UsageCount != 3 || labels[0].Shortcut != "n" {
		t.Fatalf("unexpected first label: %+v", labels[0])
	}
	expectMet(t, mock)
}

func TestActivityListFiltersAndPages(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select count").
		WithArgs("auth").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(120))
	mock.ExpectQuery("select id, user_id, action").
		WithArgs("auth", 50, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "action", "category", "status", "metadata", "ip_address", "user_agent", "created_at"}).
			AddRow("e1", "u1", "login", "auth", "success", []byte(`{"method":"otp"}`), "203.0.113.9", "curl/8", now))

	entries, total, err := store.Activity().List(context.Background(), audit.Filter{Category: "auth", Page: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 120 {
		t.Fatalf("expected total 120, got %d", total)
	}
	if len(entries) != 1 || entries[0].Metadata["method"] != "otp" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	expectMet(t, mock)
}

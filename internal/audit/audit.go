// Package audit records the append-only activity trail: every
// authentication, admin and review action lands here.
package audit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"listencheck.org/internal/ids"
	"listencheck.org/internal/obs"
)

// Entry categories.
const (
	CategoryAuth       = "auth"
	CategoryAdmin      = "admin"
	CategoryPage       = "page"
	CategoryTranscript = "transcript"
)

// Entry outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusError   = "error"
)

// ErrNotFound is returned by stores for unknown entries.
var ErrNotFound = errors.New("audit: not found")

// Entry is one immutable activity record. Entries are never mutated or
// deleted.
type Entry struct {
	ID        string
	UserID    string
	Action    string
	Category  string
	Status    string
	Metadata  map[string]any
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Category string
	// Action matches as a substring.
	Action string
	UserID string
	Page   int
	// PageSize defaults to 50.
	PageSize int
}

// Store persists activity entries.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	// List returns entries newest-first for the filter plus the unpaged total.
	List(ctx context.Context, f Filter) ([]*Entry, int, error)
	// Categories returns the distinct categories present in the log.
	Categories(ctx context.Context) ([]string, error)
}

// Recorder writes entries on a best-effort basis. Record never returns an
// error: activity logging must not abort the operation being logged, so
// persistence failures go to the server log and nowhere else.
type Recorder struct {
	store Store
}

// NewRecorder wraps a store in the never-fails contract.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record persists the entry, filling in id and timestamp.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.store == nil {
		return
	}
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	if err := r.store.Append(ctx, &e); err != nil {
		obs.Logger().Error("activity log write failed",
			"action", e.Action, "category", e.Category, "err", err.Error())
	}
}

// ClientIP extracts the caller's address, preferring the usual proxy
// headers over the socket peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if rip := r.Header.Get("X-Real-Ip"); rip != "" {
		return rip
	}
	if cf := r.Header.Get("Cf-Connecting-Ip"); cf != "" {
		return cf
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FromRequest annotates an entry with request network details.
func (e Entry) FromRequest(r *http.Request) Entry {
	if r == nil {
		return e
	}
	e.IPAddress = ClientIP(r)
	e.UserAgent = r.UserAgent()
	return e
}

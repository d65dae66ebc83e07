package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemory implements Store for development mode and tests.
type InMemory struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory { return &InMemory{} }

func (s *InMemory) Append(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *InMemory) List(ctx context.Context, f Filter) ([]*Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.Action != "" && !strings.Contains(e.Action, f.Action) {
			continue
		}
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start >= total {
		return []*Entry{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *InMemory) Categories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, e := range s.entries {
		if !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

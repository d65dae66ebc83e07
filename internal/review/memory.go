package review

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. It backs
// development mode and the HTTP handler tests.
type InMemory struct {
	mu          sync.RWMutex
	transcripts map[string]*Transcript
	labels      map[string]*Label
	seq         int
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		transcripts: make(map[string]*Transcript),
		labels:      make(map[string]*Label),
	}
}

func (s *InMemory) Transcripts() TranscriptStore { return (*memTranscripts)(s) }
func (s *InMemory) Labels() LabelStore           { return (*memLabels)(s) }

type memTranscripts InMemory

func (s *memTranscripts) Create(ctx context.Context, t *Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createLocked(t)
	return nil
}

// createLocked assigns monotonically increasing timestamps so FIFO ordering
// is stable even when inserts land within the same clock tick.
func (s *memTranscripts) createLocked(t *Transcript) {
	s.seq++
	now := time.Now().UTC().Add(time.Duration(s.seq) * time.Microsecond)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = StatusPending
	}
	cp := cloneTranscript(t)
	s.transcripts[t.ID] = cp
}

func (s *memTranscripts) Find(ctx context.Context, id string) (*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transcripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTranscript(t), nil
}

func (s *memTranscripts) NextPending(ctx context.Context) (*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var oldest *Transcript
	for _, t := range s.transcripts {
		if t.Status != StatusPending {
			continue
		}
		if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) {
			oldest = t
		}
	}
	if oldest == nil {
		return nil, ErrNotFound
	}
	return cloneTranscript(oldest), nil
}

func (s *memTranscripts) SetMarkedCorrect(ctx context.Context, id string, marked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[id]
	if !ok {
		return ErrNotFound
	}
	t.MarkedCorrect = marked
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memTranscripts) Complete(ctx context.Context, id, reviewerID, editedText string, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusPending {
		return ErrAlreadyReviewed
	}
	t.Status = StatusCompleted
	t.ReviewedByID = reviewerID
	t.EditedText = editedText
	t.Labels = append([]string(nil), labels...)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memTranscripts) Skip(ctx context.Context, id, reviewerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusPending {
		return ErrAlreadyReviewed
	}
	t.Status = StatusSkipped
	t.ReviewedByID = reviewerID
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memTranscripts) ReplaceAll(ctx context.Context, ts []*Transcript) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = make(map[string]*Transcript, len(ts))
	for _, t := range ts {
		s.createLocked(t)
	}
	return len(ts), nil
}

func (s *memTranscripts) CountByStatus(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for _, t := range s.transcripts {
		out[t.Status]++
	}
	return out, nil
}

type memLabels InMemory

func (s *memLabels) Create(ctx context.Context, l *Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	cp := *l
	s.labels[l.ID] = &cp
	return nil
}

func (s *memLabels) Find(ctx context.Context, id string) (*Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.labels[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	cp.UsageCount = s.usageLocked(l.Name)
	return &cp, nil
}

func (s *memLabels) FindByName(ctx context.Context, name string) (*Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.labels {
		if l.Name == name {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memLabels) FindByShortcut(ctx context.Context, shortcut string) (*Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.labels {
		if l.Shortcut != "" && l.Shortcut == shortcut {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memLabels) List(ctx context.Context) ([]*Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Label, 0, len(s.labels))
	for _, l := range s.labels {
		cp := *l
		cp.UsageCount = s.usageLocked(l.Name)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memLabels) ListActive(ctx context.Context) ([]*Label, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, l := range all {
		if l.Active {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memLabels) Update(ctx context.Context, l *Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.labels[l.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *l
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.labels[l.ID] = &cp
	return nil
}

func (s *memLabels) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.labels[id]; !ok {
		return ErrNotFound
	}
	delete(s.labels, id)
	return nil
}

func (s *memLabels) usageLocked(name string) int {
	n := 0
	for _, t := range s.transcripts {
		for _, l := range t.Labels {
			if l == name {
				n++
				break
			}
		}
	}
	return n
}

func cloneTranscript(t *Transcript) *Transcript {
	cp := *t
	cp.Labels = append([]string(nil), t.Labels...)
	return &cp
}

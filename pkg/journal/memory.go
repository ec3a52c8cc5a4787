package journal

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
)

// MemoryJournal keeps entries in process.
type MemoryJournal struct {
	mu      sync.Mutex
	entries map[string]*Entry
	logger  *slog.Logger
}

// NewMemoryJournal returns an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		entries: make(map[string]*Entry),
		logger:  slog.Default().With("component", "journal"),
	}
}

func (j *MemoryJournal) Violation(ctx context.Context, b *contract.Blame) {
	if _, err := j.Record(ctx, b); err != nil {
		j.logger.ErrorContext(ctx, "failed to journal violation", "blame_id", b.ID, "error", err)
	}
}

// Record adds b and returns the updated entry.
func (j *MemoryJournal) Record(_ context.Context, b *contract.Blame) (Entry, error) {
	e, err := newEntry(b)
	if err != nil {
		return Entry{}, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if prev, ok := j.entries[e.Fingerprint]; ok {
		prev.Count++
		prev.LastBlameID = e.LastBlameID
		prev.Actual = e.Actual
		if e.LastSeen.After(prev.LastSeen) {
			prev.LastSeen = e.LastSeen
		}
		return *prev, nil
	}
	j.entries[e.Fingerprint] = &e
	return e, nil
}

// Entries returns up to limit entries, most recently seen first. A
// non-positive limit returns everything.
func (j *MemoryJournal) Entries(_ context.Context, limit int) ([]Entry, error) {
	j.mu.Lock()
	out := make([]Entry, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, *e)
	}
	j.mu.Unlock()

	sort.Slice(out, func(a, b int) bool {
		if !out[a].LastSeen.Equal(out[b].LastSeen) {
			return out[a].LastSeen.After(out[b].LastSeen)
		}
		return out[a].Fingerprint < out[b].Fingerprint
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

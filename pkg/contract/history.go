package contract

import (
	"sync"
	"time"

	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
)

// Outcome is the result of one positional check.
type Outcome uint8

const (
	OutcomePassed Outcome = iota + 1
	OutcomeFailed
	// OutcomeDeferred marks a function-typed position that was wrapped
	// rather than checked.
	OutcomeDeferred
	// OutcomeSkipped marks a position never reached.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "pass"
	case OutcomeFailed:
		return "fail"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// ArgumentCheck is one entry of an ApplicationRecord.
type ArgumentCheck struct {
	Position Position
	Contract string
	Outcome  Outcome
}

// ApplicationRecord is the diagnostic trace of a single application.
type ApplicationRecord struct {
	ID        string
	Subject   string
	CallSite  srcloc.Location
	Arguments []ArgumentCheck
	Result    Outcome
	Final     State
	BlameID   string
	Started   time.Time
	Duration  time.Duration
}

// History receives application records. Implementations must be safe for
// concurrent use.
type History interface {
	Record(rec ApplicationRecord)
}

// MemoryHistory is an append-only in-memory History. With a positive
// capacity only the most recent records are retained.
type MemoryHistory struct {
	mu       sync.Mutex
	records  []ApplicationRecord
	capacity int
	dropped  int
}

// NewMemoryHistory creates a history. capacity <= 0 keeps everything.
func NewMemoryHistory(capacity int) *MemoryHistory {
	return &MemoryHistory{capacity: capacity}
}

func (h *MemoryHistory) Record(rec ApplicationRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	if h.capacity > 0 && len(h.records) > h.capacity {
		over := len(h.records) - h.capacity
		h.records = append([]ApplicationRecord(nil), h.records[over:]...)
		h.dropped += over
	}
}

// Records returns a copy of the retained records, oldest first.
func (h *MemoryHistory) Records() []ApplicationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ApplicationRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len is the number of retained records.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Dropped is the number of records evicted by the capacity bound.
func (h *MemoryHistory) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

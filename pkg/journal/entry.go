// Package journal persists and reports contract violations.
//
// Every journal is a contract.ViolationSink. Violations that agree on
// everything except the offending value collapse into one Entry whose
// Count grows with each repetition.
package journal

import (
	"context"
	"time"

	"github.com/Mindburn-Labs/hoc/pkg/canonicalize"
	"github.com/Mindburn-Labs/hoc/pkg/contract"
)

// Entry is one distinct violation.
type Entry struct {
	Fingerprint    string    `json:"fingerprint"`
	FirstBlameID   string    `json:"first_blame_id"`
	LastBlameID    string    `json:"last_blame_id"`
	Subject        string    `json:"subject"`
	Culprit        string    `json:"culprit"`
	Position       string    `json:"position"`
	Contract       string    `json:"contract"`
	Expected       string    `json:"expected"`
	Actual         string    `json:"actual"` // most recent offending value
	Location       string    `json:"location"`
	DefinitionSite string    `json:"definition_site"`
	Count          int64     `json:"count"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
}

// Journal is a queryable violation sink.
type Journal interface {
	contract.ViolationSink
	Record(ctx context.Context, b *contract.Blame) (Entry, error)
	Entries(ctx context.Context, limit int) ([]Entry, error)
}

// Store is a Journal held in an external database.
type Store interface {
	Journal
	Close() error
}

var (
	_ Store   = (*SQLJournal)(nil)
	_ Store   = (*RedisJournal)(nil)
	_ Journal = (*MemoryJournal)(nil)
)

// Connect opens the store for driver: a database/sql driver name
// (sqlite, postgres) or "redis", in which case dsn is a redis:// URL.
func Connect(ctx context.Context, driver, dsn string) (Store, error) {
	if driver == "redis" {
		j, err := OpenRedis(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return j, nil
	}
	j, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// identity is the part of a blame that decides whether two violations
// are the same.
type identity struct {
	Subject        string `json:"subject"`
	Culprit        string `json:"culprit"`
	Position       string `json:"position"`
	Contract       string `json:"contract"`
	Expected       string `json:"expected"`
	Location       string `json:"location"`
	DefinitionSite string `json:"definition_site"`
}

// Fingerprint identifies b up to its offending value, ID and time.
func Fingerprint(b *contract.Blame) (string, error) {
	s := b.Snapshot()
	return canonicalize.Fingerprint(identity{
		Subject:        s.Subject,
		Culprit:        s.Culprit,
		Position:       s.Position,
		Contract:       s.Contract,
		Expected:       s.Expected,
		Location:       s.Location.String(),
		DefinitionSite: s.DefinitionSite.String(),
	})
}

// newEntry is the first Entry for b.
func newEntry(b *contract.Blame) (Entry, error) {
	fp, err := Fingerprint(b)
	if err != nil {
		return Entry{}, err
	}
	s := b.Snapshot()
	at := s.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return Entry{
		Fingerprint:    fp,
		FirstBlameID:   s.ID,
		LastBlameID:    s.ID,
		Subject:        s.Subject,
		Culprit:        s.Culprit,
		Position:       s.Position,
		Contract:       s.Contract,
		Expected:       s.Expected,
		Actual:         s.Actual,
		Location:       s.Location.String(),
		DefinitionSite: s.DefinitionSite.String(),
		Count:          1,
		FirstSeen:      at,
		LastSeen:       at,
	}, nil
}

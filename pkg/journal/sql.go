package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
)

// Dialect selects placeholder syntax.
type Dialect uint8

const (
	// DialectSQLite uses ? placeholders.
	DialectSQLite Dialect = iota
	// DialectPostgres uses $N placeholders.
	DialectPostgres
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "pgx":
		return DialectPostgres, nil
	default:
		return 0, fmt.Errorf("journal: unsupported driver %q", driver)
	}
}

// ErrNotFound is returned by Get for an unknown fingerprint.
var ErrNotFound = errors.New("journal: entry not found")

// Fixed-width so that lexical order is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLJournal stores entries in a violations table. Both SQLite and
// Postgres accept the upsert it uses.
type SQLJournal struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewSQLJournal wraps an open database. Call Init before use.
func NewSQLJournal(db *sql.DB, dialect Dialect) *SQLJournal {
	return &SQLJournal{
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "journal"),
	}
}

// Open connects with the named driver and creates the schema. The driver
// must already be registered by the importing program.
func Open(ctx context.Context, driver, dsn string) (*SQLJournal, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: failed to open %s: %w", driver, err)
	}
	if dialect == DialectSQLite && strings.Contains(dsn, ":memory:") {
		// Each pooled connection would get its own in-memory database.
		db.SetMaxOpenConns(1)
	}
	j := NewSQLJournal(db, dialect)
	if err := j.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Init creates the violations table if it does not exist.
func (j *SQLJournal) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS violations (
		fingerprint TEXT PRIMARY KEY,
		first_blame_id TEXT NOT NULL,
		last_blame_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		culprit TEXT NOT NULL,
		position TEXT NOT NULL,
		contract TEXT NOT NULL,
		expected TEXT NOT NULL,
		actual TEXT NOT NULL,
		location TEXT NOT NULL,
		definition_site TEXT NOT NULL,
		count BIGINT NOT NULL DEFAULT 1,
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL
	)`
	if _, err := j.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("journal: failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (j *SQLJournal) Close() error {
	return j.db.Close()
}

func (j *SQLJournal) Violation(ctx context.Context, b *contract.Blame) {
	if _, err := j.Record(ctx, b); err != nil {
		j.logger.ErrorContext(ctx, "failed to journal violation", "blame_id", b.ID, "error", err)
	}
}

// Record upserts b and returns the stored entry.
func (j *SQLJournal) Record(ctx context.Context, b *contract.Blame) (Entry, error) {
	e, err := newEntry(b)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: fingerprint failed: %w", err)
	}
	query := j.rebind(`INSERT INTO violations (
		fingerprint, first_blame_id, last_blame_id, subject, culprit, position, contract, expected, actual, location, definition_site, count, first_seen, last_seen
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT (fingerprint) DO UPDATE SET
		count = violations.count + 1,
		last_blame_id = excluded.last_blame_id,
		actual = excluded.actual,
		last_seen = excluded.last_seen`)

	seen := e.LastSeen.UTC().Format(timeLayout)
	_, err = j.db.ExecContext(ctx, query,
		e.Fingerprint, e.FirstBlameID, e.LastBlameID, e.Subject, e.Culprit, e.Position, e.Contract, e.Expected, e.Actual, e.Location, e.DefinitionSite, seen, seen,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: failed to record violation: %w", err)
	}
	return j.Get(ctx, e.Fingerprint)
}

const selectColumns = `fingerprint, first_blame_id, last_blame_id, subject, culprit, position, contract, expected, actual, location, definition_site, count, first_seen, last_seen`

// Get returns the entry with the given fingerprint.
func (j *SQLJournal) Get(ctx context.Context, fingerprint string) (Entry, error) {
	query := j.rebind(`SELECT ` + selectColumns + ` FROM violations WHERE fingerprint = ?`)
	e, err := scanEntry(j.db.QueryRowContext(ctx, query, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// Entries returns up to limit entries, most recently seen first. A
// non-positive limit returns everything.
func (j *SQLJournal) Entries(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM violations ORDER BY last_seen DESC, fingerprint`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, j.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("journal: failed to list violations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e         Entry
		firstSeen string
		lastSeen  string
	)
	err := row.Scan(&e.Fingerprint, &e.FirstBlameID, &e.LastBlameID, &e.Subject, &e.Culprit, &e.Position,
		&e.Contract, &e.Expected, &e.Actual, &e.Location, &e.DefinitionSite, &e.Count, &firstSeen, &lastSeen)
	if err != nil {
		return Entry{}, err
	}
	if e.FirstSeen, err = time.Parse(timeLayout, firstSeen); err != nil {
		return Entry{}, fmt.Errorf("journal: bad first_seen %q: %w", firstSeen, err)
	}
	if e.LastSeen, err = time.Parse(timeLayout, lastSeen); err != nil {
		return Entry{}, fmt.Errorf("journal: bad last_seen %q: %w", lastSeen, err)
	}
	return e, nil
}

// rebind rewrites ? placeholders for the journal's dialect.
func (j *SQLJournal) rebind(query string) string {
	if j.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

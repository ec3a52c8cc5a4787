package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
)

// redisRecordScript upserts one violation atomically.
// KEYS[1] = entry hash, KEYS[2] = index sorted set
// ARGV[1..11] = fingerprint, first_blame_id, last_blame_id, subject,
// culprit, position, contract, expected, actual, location, definition_site
// ARGV[12] = seen (timeLayout), ARGV[13] = seen (unix nanoseconds)
var redisRecordScript = redis.NewScript(`
local key = KEYS[1]
local index = KEYS[2]

if redis.call("EXISTS", key) == 0 then
    redis.call("HSET", key,
        "fingerprint", ARGV[1],
        "first_blame_id", ARGV[2],
        "subject", ARGV[4],
        "culprit", ARGV[5],
        "position", ARGV[6],
        "contract", ARGV[7],
        "expected", ARGV[8],
        "location", ARGV[10],
        "definition_site", ARGV[11],
        "first_seen", ARGV[12],
        "count", 0)
end

local count = redis.call("HINCRBY", key, "count", 1)
redis.call("HSET", key, "last_blame_id", ARGV[3], "actual", ARGV[9], "last_seen", ARGV[12])
redis.call("ZADD", index, ARGV[13], ARGV[1])

return count
`)

// RedisJournal stores one hash per fingerprint and a sorted set of
// fingerprints ordered by last sighting.
type RedisJournal struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisJournal creates a journal on client. Keys start with prefix,
// "hoc" when empty.
func NewRedisJournal(client *redis.Client, prefix string) *RedisJournal {
	if prefix == "" {
		prefix = "hoc"
	}
	return &RedisJournal{
		client: client,
		prefix: prefix,
		logger: slog.Default().With("component", "journal"),
	}
}

// OpenRedis connects to the server named by a redis:// URL and checks
// that it answers.
func OpenRedis(ctx context.Context, url string) (*RedisJournal, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("journal: bad redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("journal: redis unavailable: %w", err)
	}
	return NewRedisJournal(client, ""), nil
}

func (j *RedisJournal) Close() error {
	return j.client.Close()
}

func (j *RedisJournal) entryKey(fingerprint string) string {
	return j.prefix + ":violation:" + fingerprint
}

func (j *RedisJournal) indexKey() string {
	return j.prefix + ":violations"
}

func (j *RedisJournal) Violation(ctx context.Context, b *contract.Blame) {
	if _, err := j.Record(ctx, b); err != nil {
		j.logger.ErrorContext(ctx, "failed to journal violation", "blame_id", b.ID, "error", err)
	}
}

// Record upserts b and returns the stored entry.
func (j *RedisJournal) Record(ctx context.Context, b *contract.Blame) (Entry, error) {
	e, err := newEntry(b)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: fingerprint failed: %w", err)
	}
	seen := e.LastSeen.UTC()
	keys := []string{j.entryKey(e.Fingerprint), j.indexKey()}
	err = redisRecordScript.Run(ctx, j.client, keys,
		e.Fingerprint, e.FirstBlameID, e.LastBlameID, e.Subject, e.Culprit, e.Position, e.Contract,
		e.Expected, e.Actual, e.Location, e.DefinitionSite, seen.Format(timeLayout), seen.UnixNano(),
	).Err()
	if err != nil {
		return Entry{}, fmt.Errorf("journal: failed to record violation: %w", err)
	}
	return j.Get(ctx, e.Fingerprint)
}

// Get returns the entry with the given fingerprint.
func (j *RedisJournal) Get(ctx context.Context, fingerprint string) (Entry, error) {
	fields, err := j.client.HGetAll(ctx, j.entryKey(fingerprint)).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("journal: failed to read violation: %w", err)
	}
	return entryFromHash(fields)
}

// Entries returns up to limit entries, most recently seen first. A
// non-positive limit returns everything.
func (j *RedisJournal) Entries(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	fps, err := j.client.ZRevRange(ctx, j.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("journal: failed to list violations: %w", err)
	}
	if len(fps) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(fps))
	_, err = j.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, fp := range fps {
			cmds[i] = pipe.HGetAll(ctx, j.entryKey(fp))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal: failed to list violations: %w", err)
	}

	entries := make([]Entry, 0, len(fps))
	for _, cmd := range cmds {
		e, err := entryFromHash(cmd.Val())
		if errors.Is(err, ErrNotFound) {
			continue // evicted between the two reads
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func entryFromHash(h map[string]string) (Entry, error) {
	if len(h) == 0 {
		return Entry{}, ErrNotFound
	}
	e := Entry{
		Fingerprint:    h["fingerprint"],
		FirstBlameID:   h["first_blame_id"],
		LastBlameID:    h["last_blame_id"],
		Subject:        h["subject"],
		Culprit:        h["culprit"],
		Position:       h["position"],
		Contract:       h["contract"],
		Expected:       h["expected"],
		Actual:         h["actual"],
		Location:       h["location"],
		DefinitionSite: h["definition_site"],
	}
	var err error
	if e.Count, err = strconv.ParseInt(h["count"], 10, 64); err != nil {
		return Entry{}, fmt.Errorf("journal: bad count %q: %w", h["count"], err)
	}
	if e.FirstSeen, err = time.Parse(timeLayout, h["first_seen"]); err != nil {
		return Entry{}, fmt.Errorf("journal: bad first_seen %q: %w", h["first_seen"], err)
	}
	if e.LastSeen, err = time.Parse(timeLayout, h["last_seen"]); err != nil {
		return Entry{}, fmt.Errorf("journal: bad last_seen %q: %w", h["last_seen"], err)
	}
	return e, nil
}

package journal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryFromHash(t *testing.T) {
	e, err := entryFromHash(map[string]string{
		"fingerprint":     "abc",
		"first_blame_id":  "b-1",
		"last_blame_id":   "b-2",
		"subject":         "add",
		"culprit":         "call site",
		"position":        "the 1st argument",
		"contract":        "(-> integer? integer? integer?)",
		"expected":        "integer?",
		"actual":          "10.1",
		"location":        "client.hoc:3:1",
		"definition_site": "lib.hoc:1:1",
		"count":           "3",
		"first_seen":      t0.Format(timeLayout),
		"last_seen":       t0.Add(time.Minute).Format(timeLayout),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.Count)
	assert.Equal(t, "b-2", e.LastBlameID)
	assert.True(t, e.FirstSeen.Equal(t0))
	assert.True(t, e.LastSeen.Equal(t0.Add(time.Minute)))

	_, err = entryFromHash(map[string]string{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = entryFromHash(map[string]string{"count": "many"})
	assert.Error(t, err)
}

func TestOpenRedis_BadURL(t *testing.T) {
	_, err := OpenRedis(context.Background(), "http://localhost:6379")
	assert.Error(t, err)
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect(context.Background(), "mongo", "mongodb://localhost")
	assert.Error(t, err)
}

// TestRedisJournal_Integration requires a running Redis.
// We skip if connection fails.
func TestRedisJournal_Integration(t *testing.T) {
	ctx := context.Background()
	conn, err := OpenRedis(ctx, "redis://localhost:6379/0")
	if err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}
	defer func() { _ = conn.Close() }()

	j := NewRedisJournal(conn.client, "hoc-test-"+uuid.NewString())
	t.Cleanup(func() {
		keys, _ := j.client.Keys(ctx, j.prefix+":*").Result()
		if len(keys) > 0 {
			_ = j.client.Del(ctx, keys...).Err()
		}
	})

	first, err := j.Record(ctx, blame("b-1", 10.1, t0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Count)

	second, err := j.Record(ctx, blame("b-2", 10.5, t0.Add(time.Second)))
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, int64(2), second.Count)
	assert.Equal(t, "b-1", second.FirstBlameID)
	assert.Equal(t, "b-2", second.LastBlameID)
	assert.Equal(t, "10.5", second.Actual)
	assert.True(t, second.FirstSeen.Equal(t0))

	other := blame("b-3", "x", t0.Add(2*time.Second))
	other.Subject = "sub"
	_, err = j.Record(ctx, other)
	require.NoError(t, err)

	entries, err := j.Entries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "sub", entries[0].Subject)
	assert.Equal(t, "add", entries[1].Subject)

	entries, err = j.Entries(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = j.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

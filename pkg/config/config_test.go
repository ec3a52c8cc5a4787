package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/hoc/pkg/config"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"HOC_LOG_LEVEL", "HOC_JOURNAL_DRIVER", "HOC_JOURNAL_DSN", "HOC_OTEL_ENABLED",
		"HOC_OTLP_ENDPOINT", "HOC_OTEL_INSECURE", "HOC_HISTORY", "HOC_LOG_RATE",
	} {
		t.Setenv(k, "")
	}
}

// TestLoad_Defaults verifies Load works with an empty environment.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := config.Load()

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Empty(t, cfg.JournalDriver)
	assert.False(t, cfg.OTelEnabled)
	assert.True(t, cfg.OTelInsecure)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, 256, cfg.HistorySize)
	assert.Equal(t, 10.0, cfg.LogRate)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOC_LOG_LEVEL", "debug")
	t.Setenv("HOC_JOURNAL_DSN", "file:hoc.db")
	t.Setenv("HOC_OTEL_ENABLED", "true")
	t.Setenv("HOC_OTEL_INSECURE", "false")
	t.Setenv("HOC_HISTORY", "16")
	t.Setenv("HOC_LOG_RATE", "0")

	cfg := config.Load()

	assert.Equal(t, "sqlite", cfg.JournalDriver, "a DSN without a driver means sqlite")
	assert.Equal(t, "file:hoc.db", cfg.JournalDSN)
	assert.True(t, cfg.OTelEnabled)
	assert.False(t, cfg.OTelInsecure)
	assert.Equal(t, 16, cfg.HistorySize)
	assert.Zero(t, cfg.LogRate)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestLoad_IgnoresGarbage(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOC_HISTORY", "-3")
	t.Setenv("HOC_LOG_RATE", "fast")
	t.Setenv("HOC_LOG_LEVEL", "loud")

	cfg := config.Load()
	assert.Equal(t, 256, cfg.HistorySize)
	assert.Equal(t, 10.0, cfg.LogRate)
	_, err := cfg.Level()
	assert.Error(t, err)
}

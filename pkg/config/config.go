// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration.
type Config struct {
	LogLevel      string
	JournalDriver string // sqlite, postgres or redis; empty keeps violations in memory
	JournalDSN    string
	OTelEnabled   bool
	OTLPEndpoint  string
	OTelInsecure  bool
	HistorySize   int     // application records kept in memory
	LogRate       float64 // violation log lines per second, 0 for unlimited
}

// Load loads configuration from HOC_* environment variables.
func Load() *Config {
	logLevel := os.Getenv("HOC_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	driver := os.Getenv("HOC_JOURNAL_DRIVER")
	dsn := os.Getenv("HOC_JOURNAL_DSN")
	if driver == "" && dsn != "" {
		driver = "sqlite"
	}

	endpoint := os.Getenv("HOC_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	return &Config{
		LogLevel:      logLevel,
		JournalDriver: driver,
		JournalDSN:    dsn,
		OTelEnabled:   os.Getenv("HOC_OTEL_ENABLED") == "true",
		OTLPEndpoint:  endpoint,
		OTelInsecure:  os.Getenv("HOC_OTEL_INSECURE") != "false",
		HistorySize:   envInt("HOC_HISTORY", 256),
		LogRate:       envFloat("HOC_LOG_RATE", 10),
	}
}

// Level parses LogLevel. Unknown levels are an error.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v >= 0 {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v >= 0 {
		return v
	}
	return def
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Mindburn-Labs/hoc/pkg/config"
	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/journal"
	"github.com/Mindburn-Labs/hoc/pkg/observability"
)

// subsystems holds everything a command needs to apply contracts:
// logging, the violation journal, application history, and telemetry.
type subsystems struct {
	cfg     *config.Config
	logger  *slog.Logger
	history *contract.MemoryHistory
	journal journal.Journal
	logSink *journal.LogSink
	otel    *observability.Provider
	closers []func(context.Context) error
}

// initSubsystems wires the runtime from the environment. Logs go to
// stderr so command output on stdout stays machine readable.
func initSubsystems(ctx context.Context, stderr io.Writer) (*subsystems, error) {
	cfg := config.Load()
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	s := &subsystems{
		cfg:     cfg,
		logger:  logger.With("component", "hoc"),
		history: contract.NewMemoryHistory(cfg.HistorySize),
		logSink: journal.NewLogSink(logger, cfg.LogRate, 5),
	}

	if cfg.JournalDriver == "" {
		s.journal = journal.NewMemoryJournal()
	} else {
		j, err := journal.Connect(ctx, cfg.JournalDriver, cfg.JournalDSN)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		s.journal = j
		s.closers = append(s.closers, func(context.Context) error { return j.Close() })
		s.logger.DebugContext(ctx, "journal opened", "driver", cfg.JournalDriver)
	}

	otelCfg := observability.DefaultConfig()
	otelCfg.Enabled = cfg.OTelEnabled
	otelCfg.OTLPEndpoint = cfg.OTLPEndpoint
	otelCfg.Insecure = cfg.OTelInsecure
	otelCfg.ServiceVersion = version
	p, err := observability.New(ctx, otelCfg)
	if err != nil {
		_ = s.Close(ctx)
		return nil, fmt.Errorf("observability: %w", err)
	}
	s.otel = p
	s.closers = append(s.closers, p.Shutdown)
	return s, nil
}

// options are the contract options every command-level wrapper uses.
func (s *subsystems) options() []contract.Option {
	return []contract.Option{
		contract.WithLogger(s.logger),
		contract.WithHistory(s.history),
		contract.WithObserver(s.otel),
		contract.WithViolationSink(s.logSink),
		contract.WithViolationSink(s.journal),
	}
}

// Close releases subsystems in reverse order of creation.
func (s *subsystems) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	s.closers = nil
	return errors.Join(errs...)
}

package contract

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
)

// ViolationSink receives every Blame exactly once, after the check that
// produced it fails and before the violation is returned to the caller.
type ViolationSink interface {
	Violation(ctx context.Context, b *Blame)
}

// SinkFunc adapts a function into a ViolationSink.
type SinkFunc func(ctx context.Context, b *Blame)

func (f SinkFunc) Violation(ctx context.Context, b *Blame) { f(ctx, b) }

// Option configures Wrap and Attach.
type Option func(*options)

type options struct {
	name     string
	def      srcloc.Location
	history  History
	observer Observer
	sinks    []ViolationSink
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

func defaultOptions() *options {
	return &options{
		observer: nopObserver{},
		logger:   slog.Default().With("component", "contract"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// WithName overrides the subject name used in blame reports. It defaults
// to the procedure's name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDefinitionSite sets the location of the party providing the
// contracted value.
func WithDefinitionSite(loc srcloc.Location) Option {
	return func(o *options) { o.def = loc }
}

// WithHistory records an ApplicationRecord for every application,
// including applications of wrappers derived from this one.
func WithHistory(h History) Option {
	return func(o *options) { o.history = h }
}

// WithObserver installs an application observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithViolationSink adds a sink notified of each violation.
func WithViolationSink(s ViolationSink) Option {
	return func(o *options) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// WithLogger replaces the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces the clock used for blame and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator replaces the generator of blame and application IDs.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) {
		if gen != nil {
			o.newID = gen
		}
	}
}

type callSiteKey struct{}

// WithCallSite returns a context announcing the location of the next
// application of a contracted procedure.
func WithCallSite(ctx context.Context, loc srcloc.Location) context.Context {
	return context.WithValue(ctx, callSiteKey{}, loc)
}

// CallSiteFrom returns the call site announced in ctx, if any.
func CallSiteFrom(ctx context.Context) srcloc.Location {
	if loc, ok := ctx.Value(callSiteKey{}).(srcloc.Location); ok {
		return loc
	}
	return srcloc.Unknown
}

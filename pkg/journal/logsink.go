package journal

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
)

// LogSink writes violations to a structured logger at warn level. Reports
// beyond the rate limit are counted and the count is attached to the next
// report that gets through.
type LogSink struct {
	logger     *slog.Logger
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewLogSink limits output to perSecond reports with the given burst.
// perSecond <= 0 disables the limit.
func NewLogSink(logger *slog.Logger, perSecond float64, burst int) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &LogSink{
		logger:  logger.With("component", "violations"),
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (s *LogSink) Violation(ctx context.Context, b *contract.Blame) {
	if !s.limiter.Allow() {
		s.suppressed.Add(1)
		return
	}
	attrs := []any{
		"blame_id", b.ID,
		"subject", b.Subject,
		"culprit", b.Culprit.String(),
		"position", b.Position.String(),
		"expected", b.Expected,
		"location", b.Location.String(),
	}
	if n := s.suppressed.Swap(0); n > 0 {
		attrs = append(attrs, "suppressed", n)
	}
	s.logger.WarnContext(ctx, "contract violation", attrs...)
}

// Suppressed is the number of reports dropped since the last one logged.
func (s *LogSink) Suppressed() int64 {
	return s.suppressed.Load()
}

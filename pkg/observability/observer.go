package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
)

var _ contract.Observer = (*Provider)(nil)

type noopTrace struct{}

func (noopTrace) Transition(contract.State, contract.State)  {}
func (noopTrace) End(contract.State, *contract.Blame, error) {}

// BeginApplication starts a span for one application.
func (p *Provider) BeginApplication(ctx context.Context, info contract.ApplicationInfo) (context.Context, contract.ApplicationTrace) {
	if !p.Enabled() {
		return ctx, noopTrace{}
	}
	attrs := []attribute.KeyValue{
		attribute.String("hoc.subject", info.Subject),
	}
	ctx, span := p.tracer.Start(ctx, "contract.apply "+info.Subject,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append(attrs,
			attribute.String("hoc.application_id", info.ID),
			attribute.Int("hoc.arity", info.Arity),
			attribute.String("hoc.call_site", info.CallSite.String()),
			attribute.Bool("hoc.inverted", info.Inverted),
		)...),
	)
	p.active.Add(ctx, 1, metric.WithAttributes(attrs...))
	return ctx, &applicationTrace{p: p, ctx: ctx, span: span, attrs: attrs, start: time.Now()}
}

type applicationTrace struct {
	p     *Provider
	ctx   context.Context
	span  trace.Span
	attrs []attribute.KeyValue
	start time.Time
}

func (t *applicationTrace) Transition(from, to contract.State) {
	t.span.AddEvent("transition", trace.WithAttributes(
		attribute.String("hoc.from", from.String()),
		attribute.String("hoc.to", to.String()),
	))
}

func (t *applicationTrace) End(final contract.State, blame *contract.Blame, err error) {
	p, ctx := t.p, t.ctx
	p.active.Add(ctx, -1, metric.WithAttributes(t.attrs...))

	outcome := append(t.attrs, attribute.String("hoc.final", final.String()))
	p.applications.Add(ctx, 1, metric.WithAttributes(outcome...))
	p.duration.Record(ctx, time.Since(t.start).Seconds(), metric.WithAttributes(outcome...))

	switch {
	case blame != nil:
		p.violations.Add(ctx, 1, metric.WithAttributes(append(t.attrs,
			attribute.String("hoc.culprit", blame.Culprit.String()),
			attribute.String("hoc.position", blame.Position.String()),
		)...))
		t.span.AddEvent("blame", trace.WithAttributes(
			attribute.String("hoc.blame_id", blame.ID),
			attribute.String("hoc.culprit", blame.Culprit.String()),
			attribute.String("hoc.expected", blame.Expected),
			attribute.String("hoc.location", blame.Location.String()),
		))
		t.span.SetStatus(codes.Error, blame.Summary())
	case err != nil:
		p.aborted.Add(ctx, 1, metric.WithAttributes(t.attrs...))
		t.span.RecordError(err)
		t.span.SetStatus(codes.Error, err.Error())
	}
	t.span.End()
}

package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/predicates"
	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "hoc", config.ServiceName)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.False(t, config.Enabled)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.False(t, p.Enabled())

	ctx, tr := p.BeginApplication(context.Background(), contract.ApplicationInfo{Subject: "f"})
	require.NotNil(t, ctx)
	tr.Transition(contract.StatePending, contract.StateCheckingArgs)
	tr.End(contract.StateDone, nil, nil)
	require.NoError(t, p.Shutdown(context.Background()))
}

func newTestProvider(t *testing.T) (*Provider, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	p, err := NewWithProviders(
		sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)),
		sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p, sr, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) (int64, []metricdata.DataPoint[int64]) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total, sum.DataPoints
		}
	}
	return 0, nil
}

func TestProvider_ObservesApplications(t *testing.T) {
	p, sr, reader := newTestProvider(t)
	ctx := context.Background()

	add := value.Lambda2("add", func(x, y any) (any, error) { return value.Add(x, y) })
	w := contract.MustWrap(add,
		contract.MustArrow(predicates.Integer, predicates.Integer, predicates.Integer),
		contract.WithObserver(p),
		contract.WithDefinitionSite(srcloc.Named("lib")),
	)

	_, err := w.Call(ctx, srcloc.Named("client"), 1, 2)
	require.NoError(t, err)
	_, err = w.Call(ctx, srcloc.Named("client"), 1.5, 2)
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "contract.apply add", spans[0].Name())
	assert.Len(t, spans[0].Events(), 4)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	bad := spans[1]
	assert.Equal(t, codes.Error, bad.Status().Code)
	events := bad.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "blame", last.Name)
	assert.Contains(t, last.Attributes, attribute.String("hoc.culprit", "call site"))

	total, _ := sumOf(t, reader, "hoc.applications.total")
	assert.EqualValues(t, 2, total)

	violations, points := sumOf(t, reader, "hoc.violations.total")
	assert.EqualValues(t, 1, violations)
	require.Len(t, points, 1)
	culprit, ok := points[0].Attributes.Value("hoc.culprit")
	require.True(t, ok)
	assert.Equal(t, "call site", culprit.AsString())
}

func TestProvider_RecordsHostErrors(t *testing.T) {
	p, sr, reader := newTestProvider(t)
	boom := errors.New("boom")
	f := value.Lambda1("f", func(any) (any, error) { return nil, boom })
	w := contract.MustWrap(f, contract.MustArrow(predicates.Any, predicates.Any), contract.WithObserver(p))

	_, err := w.Call(context.Background(), srcloc.Unknown, 1)
	require.ErrorIs(t, err, boom)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)

	aborted, _ := sumOf(t, reader, "hoc.applications.aborted")
	assert.EqualValues(t, 1, aborted)
}

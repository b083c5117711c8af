package authorize

import (
	"context"
	"time"

	obsmetrics "github.com/wavefleet/wavefleet/internal/observability/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the gate's instruments. A nil *Metrics is a no-op so tests
// can construct gates without a meter.
type Metrics struct {
	decisions metric.Int64Counter
	latency   metric.Float64Histogram
}

// NewMetrics registers the gate instruments on the given meter.
func NewMetrics(meter *obsmetrics.Meter) (*Metrics, error) {
	decisions, err := meter.CreateCounter("authz_decisions_total", "Authorization verdicts rendered, by outcome and reason")
	if err != nil {
		return nil, err
	}
	latency, err := meter.CreateHistogram("authz_decision_duration", "End-to-end authorization check latency", "ms")
	if err != nil {
		return nil, err
	}
	return &Metrics{decisions: decisions, latency: latency}, nil
}

func (m *Metrics) record(ctx context.Context, v Verdict, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("outcome", string(v.Outcome)),
	}
	if v.Reason != "" {
		attrs = append(attrs, attribute.String("reason", string(v.Reason)))
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.latency.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
}

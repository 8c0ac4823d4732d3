package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	PlacementsTotal     metric.Int64Counter
	TransitionsTotal    metric.Int64Counter
	ComplianceChecks    metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	SnapshotsIngested   metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("wavecrest-planner")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	placements, err := meter.Int64Counter(
		"planner.placements.total",
		metric.WithDescription("Calendar candidates placed or rejected"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"planner.transitions.total",
		metric.WithDescription("Lifecycle transitions applied"),
	)
	if err != nil {
		return nil, err
	}

	checks, err := meter.Int64Counter(
		"planner.compliance.checks",
		metric.WithDescription("Compliance evaluations by outcome"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	snapshots, err := meter.Int64Counter(
		"planner.snapshots.ingested",
		metric.WithDescription("Metric and competitor snapshots stored"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		PlacementsTotal:     placements,
		TransitionsTotal:    transitions,
		ComplianceChecks:    checks,
		CircuitBreakerState: circuitBreakerState,
		SnapshotsIngested:   snapshots,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordPlacements records the outcome of one calendar build.
func (m *Metrics) RecordPlacements(ctx context.Context, month string, created, rejected, collisions int) {
	if m == nil {
		return
	}
	add := func(outcome string, n int) {
		if n == 0 {
			return
		}
		m.PlacementsTotal.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("plan.month", month),
			attribute.String("placement.outcome", outcome),
		))
	}
	add("created", created)
	add("rejected", rejected)
	add("collision", collisions)
}

func (m *Metrics) RecordTransition(ctx context.Context, kind, to string, demoted bool) {
	if m == nil {
		return
	}
	m.TransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity.kind", kind),
		attribute.String("entity.to", to),
		attribute.Bool("transition.demoted", demoted),
	))
}

func (m *Metrics) RecordCompliance(ctx context.Context, status string, cached bool) {
	if m == nil {
		return
	}
	m.ComplianceChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("compliance.status", status),
		attribute.Bool("compliance.cached", cached),
	))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordSnapshots(ctx context.Context, kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SnapshotsIngested.Add(ctx, int64(n), metric.WithAttributes(attribute.String("snapshot.kind", kind)))
}

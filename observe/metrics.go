package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records gateway metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records a tool call or workflow step with its
	// duration and error status.
	RecordExecution(ctx context.Context, op Operation, duration time.Duration, err error)

	// RecordBreakerTransition counts a circuit state change for dependency.
	RecordBreakerTransition(ctx context.Context, dependency, from, to string)

	// RecordRateLimit counts one limiter decision for operation.
	RecordRateLimit(ctx context.Context, operation string, allowed, degraded bool)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	transitions  metric.Int64Counter
	rateLimits   metric.Int64Counter
}

// NewMetrics registers the gateway instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"toolgate.exec.total",
		metric.WithDescription("Total number of tool calls and workflow steps"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"toolgate.exec.errors",
		metric.WithDescription("Total number of failed tool calls and workflow steps"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"toolgate.exec.duration_ms",
		metric.WithDescription("Tool call and workflow step duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"toolgate.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	rateLimits, err := meter.Int64Counter(
		"toolgate.ratelimit.decisions",
		metric.WithDescription("Rate limiter decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		transitions:  transitions,
		rateLimits:   rateLimits,
	}, nil
}

func (m *metricsImpl) RecordExecution(ctx context.Context, op Operation, duration time.Duration, err error) {
	opt := metric.WithAttributes(op.attributes()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordBreakerTransition(ctx context.Context, dependency, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *metricsImpl) RecordRateLimit(ctx context.Context, operation string, allowed, degraded bool) {
	m.rateLimits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("allowed", allowed),
		attribute.Bool("degraded", degraded),
	))
}

type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordExecution(context.Context, Operation, time.Duration, error) {}

func (noopMetrics) RecordBreakerTransition(context.Context, string, string, string) {}

func (noopMetrics) RecordRateLimit(context.Context, string, bool, bool) {}

package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the unit of work Middleware wraps.
type ExecuteFunc func(ctx context.Context) error

// Middleware wraps tool calls and workflow steps with tracing, metrics and
// logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the span context is passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components become no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// NopMiddleware returns a Middleware that only runs the wrapped function.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Metrics returns the recorder used by the middleware.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger { return m.logger }

// Run executes fn inside a span for op and records its outcome.
func (m *Middleware) Run(ctx context.Context, op Operation, fn ExecuteFunc) error {
	ctx, span := m.tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordExecution(ctx, op, duration, err)

	log := m.logger.WithOperation(op)
	fields := []Field{{Key: "duration_ms", Value: duration.Milliseconds()}}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		log.Warn(ctx, op.Kind+" failed", fields...)
	} else {
		log.Debug(ctx, op.Kind+" completed", fields...)
	}
	return err
}

// Wrap binds op to fn.
func (m *Middleware) Wrap(op Operation, fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context) error {
		return m.Run(ctx, op, fn)
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

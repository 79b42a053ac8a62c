package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation kinds.
const (
	KindToolCall     = "tool.call"
	KindToolServe    = "tool.serve"
	KindWorkflowStep = "workflow.step"
)

// Operation identifies a unit of work for telemetry purposes: an outbound
// tool call, a tool request served, or a workflow step.
type Operation struct {
	Kind      string // KindToolCall, KindToolServe or KindWorkflowStep
	Namespace string // tool service for calls and served requests, workflow name for steps
	Name      string // tool operation or step name
}

// ToolCall describes an outbound call to operation on dependency.
func ToolCall(dependency, operation string) Operation {
	return Operation{Kind: KindToolCall, Namespace: dependency, Name: operation}
}

// ToolServe describes a request served by a tool service.
func ToolServe(service, operation string) Operation {
	return Operation{Kind: KindToolServe, Namespace: service, Name: operation}
}

// WorkflowStep describes one step of a workflow run.
func WorkflowStep(workflow, step string) Operation {
	return Operation{Kind: KindWorkflowStep, Namespace: workflow, Name: step}
}

// ID returns namespace.name, or just name when there is no namespace.
func (o Operation) ID() string {
	if o.Namespace != "" {
		return o.Namespace + "." + o.Name
	}
	return o.Name
}

// SpanName returns the deterministic span name, e.g.
// tool.call.flight_tool.search_flights or workflow.step.flight_search.resolve_locations.
func (o Operation) SpanName() string {
	return o.Kind + "." + o.ID()
}

func (o Operation) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("toolgate.kind", o.Kind),
		attribute.String("toolgate.name", o.Name),
	}
	if o.Namespace != "" {
		attrs = append(attrs, attribute.String("toolgate.namespace", o.Namespace))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for op.
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	kind := trace.SpanKindInternal
	switch op.Kind {
	case KindToolCall:
		kind = trace.SpanKindClient
	case KindToolServe:
		kind = trace.SpanKindServer
	}
	attrs := op.attributes()
	if id := CorrelationID(ctx); id != "" {
		attrs = append(attrs, attribute.String("correlation_id", id))
	}
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(kind),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer whose spans record nothing.
func NopTracer() Tracer {
	return NewTracer(tracenoop.NewTracerProvider().Tracer("noop"))
}

package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type harness struct {
	mw     *Middleware
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newHarness(t *testing.T) harness {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	logs := &bytes.Buffer{}
	return harness{
		mw:     NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", logs)),
		spans:  spans,
		reader: reader,
		logs:   logs,
	}
}

func TestMiddleware_SuccessPath(t *testing.T) {
	h := newHarness(t)
	op := ToolCall("flight_tool", "resolve_location")

	err := h.mw.Run(context.Background(), op, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	spans := h.spans.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Ok {
		t.Fatalf("spans = %+v", spans)
	}
	if got := sumTotal(t, collect(t, h.reader), "toolgate.exec.total"); got != 1 {
		t.Errorf("total = %d, want 1", got)
	}
	entries := decodeLines(t, h.logs)
	if len(entries) != 1 || entries[0]["msg"] != "tool.call completed" {
		t.Errorf("log entries = %v", entries)
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("boom")

	err := h.mw.Run(context.Background(), WorkflowStep("wf", "s"), func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if got := sumTotal(t, collect(t, h.reader), "toolgate.exec.errors"); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}
	e := decodeLines(t, h.logs)[0]
	if e["level"] != "warn" || e["error"] != "boom" {
		t.Errorf("log entry = %v", e)
	}
}

func TestMiddleware_PassesSpanContext(t *testing.T) {
	h := newHarness(t)

	var inner trace.SpanContext
	wrapped := h.mw.Wrap(ToolCall("d", "o"), func(ctx context.Context) error {
		inner = trace.SpanContextFromContext(ctx)
		return nil
	})
	if err := wrapped(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !inner.IsValid() {
		t.Fatal("wrapped function did not receive span context")
	}
	if inner.SpanID() != h.spans.Ended()[0].SpanContext().SpanID() {
		t.Error("span id mismatch")
	}
}

func TestNopMiddleware(t *testing.T) {
	called := false
	err := NopMiddleware().Run(context.Background(), ToolCall("d", "o"), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("Run() = %v, called = %v", err, called)
	}
}

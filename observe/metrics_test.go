package observe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: data = %T, want Sum[int64]", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordExecution(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	op := ToolCall("flight_tool", "search_flights")

	m.RecordExecution(ctx, op, 20*time.Millisecond, nil)
	m.RecordExecution(ctx, op, 30*time.Millisecond, errors.New("x"))

	rm := collect(t, reader)
	if got := sumTotal(t, rm, "toolgate.exec.total"); got != 2 {
		t.Errorf("total = %d, want 2", got)
	}
	if got := sumTotal(t, rm, "toolgate.exec.errors"); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}
	hist := findMetric(rm, "toolgate.exec.duration_ms")
	if hist == nil {
		t.Fatal("duration histogram not found")
	}
	h := hist.Data.(metricdata.Histogram[float64])
	if len(h.DataPoints) != 1 || h.DataPoints[0].Count != 2 {
		t.Errorf("histogram points = %+v", h.DataPoints)
	}
}

func TestMetrics_BreakerAndRateLimit(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBreakerTransition(ctx, "flight_tool", "closed", "open")
	m.RecordRateLimit(ctx, "flight_search", true, false)
	m.RecordRateLimit(ctx, "flight_search", false, false)

	rm := collect(t, reader)
	if got := sumTotal(t, rm, "toolgate.breaker.transitions"); got != 1 {
		t.Errorf("transitions = %d, want 1", got)
	}
	if got := sumTotal(t, rm, "toolgate.ratelimit.decisions"); got != 2 {
		t.Errorf("decisions = %d, want 2", got)
	}
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	m, reader := newTestMetrics(t)
	op := WorkflowStep("wf", "step")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordExecution(context.Background(), op, time.Millisecond, nil)
		}()
	}
	wg.Wait()

	if got := sumTotal(t, collect(t, reader), "toolgate.exec.total"); got != 50 {
		t.Errorf("total = %d, want 50", got)
	}
}

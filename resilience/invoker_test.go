package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/toolgate/store"
)

func newTestInvoker(threshold int, cfg InvokerConfig) (*Invoker, *Breaker) {
	b := NewBreaker(store.NewMemoryStore(), BreakerConfig{FailThreshold: threshold, OpenDuration: time.Minute})
	return NewInvoker(b, cfg), b
}

func TestInvoker_Success(t *testing.T) {
	var outcomes atomic.Int32
	inv, b := newTestInvoker(2, InvokerConfig{OnOutcome: func(o Outcome) {
		if o.Err != nil || o.State != StateClosed {
			t.Errorf("Outcome = %+v, want success", o)
		}
		outcomes.Add(1)
	}})
	ctx := context.Background()

	b.OnFailure(ctx, "dep")
	err := inv.Invoke(ctx, Call{Dependency: "dep"}, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got := outcomes.Load(); got != 1 {
		t.Errorf("outcomes = %d, want 1", got)
	}
	// the success cleared the earlier failure
	if got := b.OnFailure(ctx, "dep"); got != StateClosed {
		t.Errorf("OnFailure() after success = %v, want closed", got)
	}
}

func TestInvoker_CallFailedOpensBreaker(t *testing.T) {
	inv, _ := newTestInvoker(2, InvokerConfig{})
	ctx := context.Background()
	errBoom := errors.New("502 bad gateway")
	fail := func(context.Context) error { return errBoom }

	err := inv.Invoke(ctx, Call{Dependency: "dep"}, fail)
	var de *DependencyError
	if !errors.As(err, &de) {
		t.Fatalf("Invoke() error = %v, want *DependencyError", err)
	}
	if !de.Attempted || de.State != StateClosed || !errors.Is(err, errBoom) {
		t.Errorf("first failure = %+v", de)
	}
	if !errors.Is(err, ErrDependencyCallFailed) || KindOf(err) != KindDependencyCallFailed {
		t.Errorf("first failure kind = %v", KindOf(err))
	}

	err = inv.Invoke(ctx, Call{Dependency: "dep"}, fail)
	if !errors.As(err, &de) || de.State != StateOpen {
		t.Errorf("second failure = %v, want post-failure state open", err)
	}
}

func TestInvoker_RejectedWithoutCall(t *testing.T) {
	var outcomes atomic.Int32
	inv, b := newTestInvoker(1, InvokerConfig{OnOutcome: func(Outcome) { outcomes.Add(1) }})
	ctx := context.Background()
	b.OnFailure(ctx, "dep")

	called := false
	err := inv.Invoke(ctx, Call{Dependency: "dep"}, func(context.Context) error {
		called = true
		return nil
	})

	if called {
		t.Error("op ran while the circuit was open")
	}
	if !errors.Is(err, ErrDependencyUnavailable) || !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Invoke() error = %v, want dependency unavailable", err)
	}
	var de *DependencyError
	if !errors.As(err, &de) || de.State != StateOpen {
		t.Errorf("DependencyError = %+v, want state open", de)
	}
	if got := outcomes.Load(); got != 0 {
		t.Errorf("outcomes = %d, want 0 for a rejected call", got)
	}
}

func TestInvoker_CallTimeout(t *testing.T) {
	inv, _ := newTestInvoker(5, InvokerConfig{})

	start := time.Now()
	err := inv.Invoke(context.Background(), Call{Dependency: "dep", Timeout: 20 * time.Millisecond}, func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	})

	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Invoke() waited for a hung call")
	}
	if !errors.Is(err, ErrDependencyCallFailed) || !errors.Is(err, ErrTimeout) {
		t.Errorf("Invoke() error = %v, want call failed by timeout", err)
	}
	if KindOf(err) != KindDependencyCallFailed {
		t.Errorf("KindOf() = %v, want dependency_call_failed", KindOf(err))
	}
}

func TestInvoker_AbandonedCallStillReports(t *testing.T) {
	outcome := make(chan Outcome, 1)
	inv, b := newTestInvoker(1, InvokerConfig{OnOutcome: func(o Outcome) { outcome <- o }})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	err := inv.Invoke(ctx, Call{Dependency: "dep", Timeout: time.Second}, func(context.Context) error {
		<-release
		return errors.New("late failure")
	})

	if !errors.Is(err, ErrTimeout) || KindOf(err) != KindTimeout {
		t.Fatalf("Invoke() error = %v, want run timeout", err)
	}
	close(release)

	select {
	case o := <-outcome:
		if !o.Abandoned || o.Err == nil || o.State != StateOpen {
			t.Errorf("Outcome = %+v, want abandoned failure that opened the circuit", o)
		}
	case <-time.After(time.Second):
		t.Fatal("abandoned call never reported")
	}

	if d := b.Allow(context.Background(), "dep"); d.Permitted {
		t.Errorf("Allow() = %+v, want the late failure recorded", d)
	}
}

func TestInvoker_BulkheadFull(t *testing.T) {
	group := NewBulkheadGroup(BulkheadConfig{MaxConcurrent: 1})
	inv, _ := newTestInvoker(1, InvokerConfig{Bulkheads: group})
	ctx := context.Background()

	block := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- inv.Invoke(ctx, Call{Dependency: "dep"}, func(context.Context) error {
			<-block
			return nil
		})
	}()

	deadline := time.Now().Add(time.Second)
	for group.For("dep").Metrics().Active == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	err := inv.Invoke(ctx, Call{Dependency: "dep"}, func(context.Context) error { return nil })
	if !errors.Is(err, ErrBulkheadFull) || KindOf(err) != KindDependencyUnavailable {
		t.Errorf("Invoke() error = %v, want bulkhead rejection", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Errorf("first Invoke() error = %v", err)
	}
}

func TestInvoker_CancelledBeforeStart(t *testing.T) {
	inv, _ := newTestInvoker(1, InvokerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := inv.Invoke(ctx, Call{Dependency: "dep"}, func(context.Context) error {
		called = true
		return nil
	})
	if called || !errors.Is(err, context.Canceled) {
		t.Errorf("Invoke() = %v (called %v), want context.Canceled without a call", err, called)
	}
}

func TestInvoker_TrialClaimOutlivesTrialCall(t *testing.T) {
	b := NewBreaker(store.NewMemoryStore(), BreakerConfig{
		FailThreshold: 1,
		OpenDuration:  10 * time.Millisecond,
		TrialTimeout:  30 * time.Millisecond,
	})
	inv := NewInvoker(b, InvokerConfig{})
	ctx := context.Background()

	b.OnFailure(ctx, "dep")
	time.Sleep(20 * time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- inv.Invoke(ctx, Call{Dependency: "dep", Timeout: 300 * time.Millisecond}, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// past TrialTimeout but inside the trial call's own timeout
	time.Sleep(60 * time.Millisecond)
	if d := b.Allow(ctx, "dep"); d.Permitted {
		t.Errorf("Allow() = %+v during an in-flight trial, want rejected", d)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial Invoke() error = %v", err)
	}
	if s, _ := b.State(ctx, "dep"); s != StateClosed {
		t.Errorf("state after trial success = %v, want closed", s)
	}
}

func TestInvoker_BulkheadRejectionReportsCircuitState(t *testing.T) {
	group := NewBulkheadGroup(BulkheadConfig{MaxConcurrent: 1})
	inv, b := newTestInvoker(1, InvokerConfig{Bulkheads: group})
	ctx := context.Background()

	block := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- inv.Invoke(ctx, Call{Dependency: "dep"}, func(context.Context) error {
			<-block
			return nil
		})
	}()
	deadline := time.Now().Add(time.Second)
	for group.For("dep").Metrics().Active == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	b.OnFailure(ctx, "dep")
	err := inv.Invoke(ctx, Call{Dependency: "dep"}, func(context.Context) error { return nil })

	var de *DependencyError
	if !errors.As(err, &de) || de.State != StateOpen {
		t.Errorf("Invoke() error = %v, want bulkhead rejection reporting an open circuit", err)
	}
	if !errors.Is(err, ErrBulkheadFull) || errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Invoke() error = %v, want ErrBulkheadFull only", err)
	}

	close(block)
	<-done
}

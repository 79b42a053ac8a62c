package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// trialGrace covers recording a trial's outcome after its call timeout.
const trialGrace = time.Second

// Call describes one downstream call.
type Call struct {
	// Dependency is the breaker name, e.g. "flight_tool.search_flights".
	Dependency string

	// Timeout bounds the call itself. It is independent of the caller's
	// context so an abandoned call still reaches an outcome.
	// Default: InvokerConfig.DefaultTimeout
	Timeout time.Duration
}

// Outcome describes a settled call.
type Outcome struct {
	Dependency string
	Decision   Decision
	Err        error
	State      State
	Duration   time.Duration

	// Abandoned is set when the caller stopped waiting before the outcome.
	Abandoned bool
}

// InvokerConfig configures the invoker.
type InvokerConfig struct {
	// DefaultTimeout applies to calls without a Timeout.
	// Default: 5 seconds
	DefaultTimeout time.Duration

	// Bulkheads caps concurrent calls per dependency when set.
	Bulkheads *BulkheadGroup

	// OnOutcome is called once per permitted call after the breaker outcome
	// has been recorded.
	OnOutcome func(Outcome)
}

// Invoker gates downstream calls through a Breaker and reports exactly one
// breaker outcome per permitted call.
type Invoker struct {
	breaker *Breaker
	config  InvokerConfig
}

// NewInvoker creates an invoker backed by b.
func NewInvoker(b *Breaker, config InvokerConfig) *Invoker {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 5 * time.Second
	}
	return &Invoker{breaker: b, config: config}
}

// Breaker returns the invoker's breaker.
func (inv *Invoker) Breaker() *Breaker {
	return inv.breaker
}

// Invoke runs op for call.
//
// A call the breaker or bulkhead rejects fails with a *DependencyError
// matching ErrDependencyUnavailable and op is never run. A permitted call
// runs on a context detached from ctx and bounded by the call timeout; any
// error from op, or the timeout, is recorded with OnFailure and returned as
// a *DependencyError matching ErrDependencyCallFailed. Success is recorded
// with OnSuccess.
//
// If ctx ends first, Invoke returns without waiting. The call settles in the
// background and its outcome is still recorded.
func (inv *Invoker) Invoke(ctx context.Context, call Call, op func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return waitEnded(call.Dependency, err)
	}

	release := func() {}
	if inv.config.Bulkheads != nil {
		bh := inv.config.Bulkheads.For(call.Dependency)
		if err := bh.Acquire(ctx); err != nil {
			if errors.Is(err, ErrBulkheadFull) {
				state, _ := inv.breaker.State(ctx, call.Dependency)
				return &DependencyError{Dependency: call.Dependency, State: state, Err: err}
			}
			return waitEnded(call.Dependency, err)
		}
		release = bh.Release
	}

	timeout := call.Timeout
	if timeout <= 0 {
		timeout = inv.config.DefaultTimeout
	}

	dec := inv.breaker.allow(ctx, call.Dependency, timeout+trialGrace)
	if !dec.Permitted {
		release()
		return &DependencyError{Dependency: call.Dependency, State: dec.State}
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	var abandoned atomic.Bool
	settled := make(chan error, 1)

	go func() {
		defer cancel()
		defer release()

		start := time.Now()
		result := make(chan error, 1)
		go func() { result <- op(callCtx) }()

		var err error
		select {
		case err = <-result:
			if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %s after %s: %w", ErrTimeout, call.Dependency, timeout, err)
			}
		case <-callCtx.Done():
			err = fmt.Errorf("%w: %s after %s", ErrTimeout, call.Dependency, timeout)
		}

		// the outcome is recorded even when the call timed out
		bookCtx := context.WithoutCancel(callCtx)
		var state State
		if err == nil {
			state = inv.breaker.OnSuccess(bookCtx, call.Dependency)
		} else {
			state = inv.breaker.OnFailure(bookCtx, call.Dependency)
			err = &DependencyError{Dependency: call.Dependency, Attempted: true, State: state, Err: err}
		}

		if inv.config.OnOutcome != nil {
			inv.config.OnOutcome(Outcome{
				Dependency: call.Dependency,
				Decision:   dec,
				Err:        err,
				State:      state,
				Duration:   time.Since(start),
				Abandoned:  abandoned.Load(),
			})
		}
		settled <- err
	}()

	select {
	case err := <-settled:
		return err
	case <-ctx.Done():
		abandoned.Store(true)
		return waitEnded(call.Dependency, ctx.Err())
	}
}

func waitEnded(dep string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: abandoned wait for %s: %w", ErrTimeout, dep, err)
	}
	return fmt.Errorf("resilience: abandoned wait for %s: %w", dep, err)
}

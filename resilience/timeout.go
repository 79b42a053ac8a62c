package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration for the operation.
	// Default: 30 seconds
	Timeout time.Duration

	// OnAbandon is called with the late result of an operation whose wait
	// was abandoned. It runs on the operation's goroutine.
	OnAbandon func(err error)
}

// Timeout bounds how long a caller waits for an operation. When the deadline
// passes the caller is released immediately; the operation keeps running
// with a cancelled context until it returns.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Timeout{config: config}
}

// Execute runs the operation with a timeout. It returns ErrTimeout when the
// deadline passes and the parent context's error when the parent ends first.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	var (
		mu        sync.Mutex
		abandoned bool
	)
	done := make(chan error, 1)

	go func() {
		err := op(ctx)
		mu.Lock()
		if abandoned {
			mu.Unlock()
			if t.config.OnAbandon != nil {
				t.config.OnAbandon(err)
			}
			return
		}
		done <- err
		mu.Unlock()
	}()

	select {
	case err := <-done:
		return t.mapErr(ctx, err)
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	select {
	case err := <-done:
		return t.mapErr(ctx, err)
	default:
	}
	abandoned = true
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}

func (t *Timeout) mapErr(ctx context.Context, err error) error {
	if err != nil && errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// ExecuteWithTimeout is a convenience function to run an operation with timeout.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	return NewTimeout(TimeoutConfig{Timeout: timeout}).Execute(ctx, op)
}

package resilience

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen matches dependency errors raised while the breaker
	// rejected the call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded is returned when max retry attempts are exhausted.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrRateLimited is returned when a caller exceeded its quota.
	ErrRateLimited = errors.New("resilience: rate limit exceeded")

	// ErrLimiterUnavailable is returned when the limiter could not reach the
	// shared store. It also matches store.ErrUnavailable.
	ErrLimiterUnavailable = errors.New("resilience: rate limiter unavailable")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrDependencyUnavailable is returned when no call was attempted.
	ErrDependencyUnavailable = errors.New("resilience: dependency unavailable")

	// ErrDependencyCallFailed is returned when an attempted call failed.
	ErrDependencyCallFailed = errors.New("resilience: dependency call failed")
)

// Kind classifies a failure for callers of an entry point.
type Kind int

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	// KindRateLimited means the caller exceeded its quota.
	KindRateLimited
	// KindDependencyUnavailable means the breaker or bulkhead rejected the call.
	KindDependencyUnavailable
	// KindDependencyCallFailed means the call was attempted and failed.
	KindDependencyCallFailed
	// KindWorkflowFailed means a step reported a domain error.
	KindWorkflowFailed
	// KindTimeout means the run deadline was exceeded.
	KindTimeout
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindRateLimited:
		return "rate_limited"
	case KindDependencyUnavailable:
		return "dependency_unavailable"
	case KindDependencyCallFailed:
		return "dependency_call_failed"
	case KindWorkflowFailed:
		return "workflow_failed"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Errors that carry no classification are
// workflow failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var k interface{ ErrorKind() Kind }
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	switch {
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrDependencyUnavailable), errors.Is(err, ErrBulkheadFull):
		return KindDependencyUnavailable
	case errors.Is(err, ErrDependencyCallFailed):
		return KindDependencyCallFailed
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindWorkflowFailed
	}
}

// RateLimitError reports a denied limiter check.
type RateLimitError struct {
	Caller    string
	Operation string
	Result    RateLimitResult
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("resilience: rate limit exceeded for %s on %s (limit %d, reset in %ds)",
		e.Caller, e.Operation, e.Result.Limit, e.Result.ResetInSeconds)
}

// Is matches ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// ErrorKind implements the kind classification.
func (e *RateLimitError) ErrorKind() Kind {
	return KindRateLimited
}

// DependencyError reports a rejected or failed downstream call.
type DependencyError struct {
	// Dependency is the breaker name of the downstream.
	Dependency string

	// Attempted is false when the call was rejected before any I/O.
	Attempted bool

	// State is the breaker state observed at rejection, or the state after
	// the failure was recorded.
	State State

	// Err is the underlying cause.
	Err error
}

func (e *DependencyError) Error() string {
	if !e.Attempted {
		if e.Err != nil {
			return fmt.Sprintf("resilience: dependency %s unavailable (circuit %s): %v", e.Dependency, e.State, e.Err)
		}
		return fmt.Sprintf("resilience: dependency %s unavailable (circuit %s)", e.Dependency, e.State)
	}
	return fmt.Sprintf("resilience: dependency %s call failed (circuit %s): %v", e.Dependency, e.State, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// Is matches ErrDependencyUnavailable or ErrDependencyCallFailed, and
// ErrCircuitOpen for breaker rejections.
func (e *DependencyError) Is(target error) bool {
	switch target {
	case ErrDependencyUnavailable:
		return !e.Attempted
	case ErrDependencyCallFailed:
		return e.Attempted
	case ErrCircuitOpen:
		return !e.Attempted && e.State != StateClosed && !errors.Is(e.Err, ErrBulkheadFull)
	}
	return false
}

// ErrorKind implements the kind classification.
func (e *DependencyError) ErrorKind() Kind {
	if e.Attempted {
		return KindDependencyCallFailed
	}
	return KindDependencyUnavailable
}

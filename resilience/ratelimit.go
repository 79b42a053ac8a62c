package resilience

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/toolgate/store"
)

// FixedWindowConfig configures the fixed-window rate limiter.
type FixedWindowConfig struct {
	// Limit is the number of checks allowed per window.
	// Default: 60
	Limit int

	// Window is the window length, aligned to the unix epoch.
	// Default: 60 seconds
	Window time.Duration

	// Slack extends the counter expiry past the window end to tolerate
	// clock skew between replicas and the store.
	// Default: 15 seconds
	Slack time.Duration

	// KeyPrefix namespaces counters in the store.
	// Default: "rl:"
	KeyPrefix string

	// Now is the clock.
	// Default: time.Now
	Now func() time.Time
}

// RateLimitResult is the outcome of a limiter check.
type RateLimitResult struct {
	Allowed        bool `json:"allowed"`
	Limit          int  `json:"limit"`
	Remaining      int  `json:"remaining"`
	ResetInSeconds int  `json:"reset_in_seconds"`
}

// FixedWindowLimiter counts checks per (caller, operation) in clock-aligned
// windows held in a shared store. A window admits up to Limit checks; across
// a window edge a caller can burst to twice that.
type FixedWindowLimiter struct {
	config FixedWindowConfig
	store  store.Store
}

// NewFixedWindowLimiter creates a limiter on s.
func NewFixedWindowLimiter(s store.Store, config FixedWindowConfig) *FixedWindowLimiter {
	if config.Limit <= 0 {
		config.Limit = 60
	}
	if config.Window < time.Second {
		config.Window = 60 * time.Second
	}
	if config.Slack <= 0 {
		config.Slack = 15 * time.Second
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rl:"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &FixedWindowLimiter{config: config, store: s}
}

// Config returns the limiter configuration.
func (l *FixedWindowLimiter) Config() FixedWindowConfig {
	return l.config
}

// Check counts one request for (callerKey, operation). It does not retry:
// a store failure is returned as an error matching ErrLimiterUnavailable
// and store.ErrUnavailable, and the result is zero.
func (l *FixedWindowLimiter) Check(ctx context.Context, callerKey, operation string) (RateLimitResult, error) {
	window := int64(l.config.Window / time.Second)
	now := l.config.Now().Unix()
	index := now / window
	key := l.config.KeyPrefix + callerKey + ":" + operation + ":" + strconv.FormatInt(index, 10)

	count, err := l.store.IncrWithExpiry(ctx, key, l.config.Window+l.config.Slack)
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("%w: %w", ErrLimiterUnavailable, err)
	}

	return RateLimitResult{
		Allowed:        count <= int64(l.config.Limit),
		Limit:          l.config.Limit,
		Remaining:      int(max(int64(l.config.Limit)-count, 0)),
		ResetInSeconds: int(window - now%window),
	}, nil
}

// LimiterPolicy decides what happens when the limiter's store is down.
type LimiterPolicy int

const (
	// FailOpen admits requests while the store is unavailable.
	FailOpen LimiterPolicy = iota
	// FailClosed rejects requests while the store is unavailable.
	FailClosed
)

// String returns the config name of the policy.
func (p LimiterPolicy) String() string {
	if p == FailClosed {
		return "fail_closed"
	}
	return "fail_open"
}

// ParseLimiterPolicy parses "fail_open" or "fail_closed".
func ParseLimiterPolicy(s string) (LimiterPolicy, error) {
	switch s {
	case "", "fail_open":
		return FailOpen, nil
	case "fail_closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("resilience: unknown limiter policy %q", s)
	}
}

// Enforce runs Check and applies policy. It returns nil when the request is
// admitted, a *RateLimitError when the quota is spent, and under FailClosed
// the store error. The returned bool reports whether admission was degraded
// by a store failure.
func (l *FixedWindowLimiter) Enforce(ctx context.Context, callerKey, operation string, policy LimiterPolicy) (RateLimitResult, bool, error) {
	res, err := l.Check(ctx, callerKey, operation)
	if err != nil {
		if policy == FailClosed {
			return res, true, err
		}
		return RateLimitResult{Allowed: true, Limit: l.config.Limit, Remaining: l.config.Limit}, true, nil
	}
	if !res.Allowed {
		return res, false, &RateLimitError{Caller: callerKey, Operation: operation, Result: res}
	}
	return res, false, nil
}

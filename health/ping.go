package health

import (
	"context"
	"fmt"
)

// Pinger is implemented by backing services that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports Unhealthy when Ping fails.
type PingChecker struct {
	name     string
	target   Pinger
	degraded bool
}

// PingOption configures a PingChecker.
type PingOption func(*PingChecker)

// DegradeOnFailure reports Degraded instead of Unhealthy when the ping
// fails. Use it for services the gateway can run without.
func DegradeOnFailure() PingOption {
	return func(c *PingChecker) { c.degraded = true }
}

// NewPingChecker creates a checker named name that pings target.
func NewPingChecker(name string, target Pinger, opts ...PingOption) *PingChecker {
	c := &PingChecker{name: name, target: target}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the checker name.
func (c *PingChecker) Name() string { return c.name }

// Check pings the target.
func (c *PingChecker) Check(ctx context.Context) Result {
	if err := c.target.Ping(ctx); err != nil {
		msg := fmt.Sprintf("%s unreachable", c.name)
		if c.degraded {
			r := Degraded(msg)
			r.Error = err
			return r
		}
		return Unhealthy(msg, err)
	}
	return Healthy(c.name + " reachable")
}

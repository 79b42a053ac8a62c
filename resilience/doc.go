// Package resilience gates calls to downstream dependencies.
//
// The package provides the patterns an orchestrator needs to protect itself
// and its dependencies from overload and cascading failure:
//
//   - FixedWindowLimiter: counts requests per caller and operation in
//     clock-aligned windows held in a shared store.
//
//   - Breaker: a per-dependency circuit breaker (closed, open, half_open)
//     whose state lives in a shared store, so every replica observes the same
//     circuit. Exactly one trial call is admitted when an open circuit cools
//     down, even across processes.
//
//   - Invoker: runs a single downstream call behind the breaker and an
//     optional per-dependency bulkhead, bounds it with a timeout, and reports
//     exactly one outcome per permitted call.
//
//   - Retry, Bulkhead, Timeout: building blocks used by the invoker, the
//     workflow engine and process startup.
//
// # Failure policy
//
// The limiter surfaces store failures as ErrLimiterUnavailable and lets the
// caller pick a LimiterPolicy. The breaker never blocks traffic because of
// its own bookkeeping: when the store is unreachable Allow permits the call
// and marks the Decision as Degraded.
//
// # Usage
//
//	s, _ := store.OpenRedisStore(store.RedisConfig{URL: "redis://localhost:6379/0"})
//
//	limiter := resilience.NewFixedWindowLimiter(s, resilience.FixedWindowConfig{Limit: 60})
//	breaker := resilience.NewBreaker(s, resilience.BreakerConfig{
//	    FailThreshold: 5,
//	    Window:        time.Minute,
//	    OpenDuration:  time.Minute,
//	})
//	invoker := resilience.NewInvoker(breaker, resilience.InvokerConfig{})
//
//	if _, _, err := limiter.Enforce(ctx, "user:42", "flight_search", resilience.FailOpen); err != nil {
//	    return err // *RateLimitError
//	}
//	err := invoker.Invoke(ctx, resilience.Call{Dependency: "flight_tool.search_flights", Timeout: 5 * time.Second},
//	    func(ctx context.Context) error {
//	        return callFlightTool(ctx)
//	    })
//
// Every error returned by this package can be classified with KindOf.
package resilience

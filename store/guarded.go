package store

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// GuardConfig configures a GuardedStore.
type GuardConfig struct {
	// Name labels the breaker in state change callbacks.
	// Default: "store"
	Name string

	// ConsecutiveFailures trips the guard.
	// Default: 3
	ConsecutiveFailures uint32

	// OpenTimeout is how long the guard rejects before probing again.
	// Default: 5s
	OpenTimeout time.Duration

	// OnStateChange is called when the guard changes state.
	OnStateChange func(name string, from, to string)
}

// GuardedStore fails fast when the wrapped store keeps failing. Only
// ErrUnavailable errors count against the guard; invalid keys and context
// cancellation by the caller do not.
type GuardedStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

// NewGuardedStore wraps next.
func NewGuardedStore(next Store, cfg GuardConfig) *GuardedStore {
	if cfg.Name == "" {
		cfg.Name = "store"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 5 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled)
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, from.String(), to.String())
		}
	}

	return &GuardedStore{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (g *GuardedStore) do(op, key string, fn func() (any, error)) (any, error) {
	v, err := g.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, opError(op, key, err)
	}
	return v, err
}

// IncrWithExpiry implements Store.
func (g *GuardedStore) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	v, err := g.do("incr", key, func() (any, error) {
		return g.next.IncrWithExpiry(ctx, key, ttl)
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// SetIfAbsent implements Store.
func (g *GuardedStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	v, err := g.do("setnx", key, func() (any, error) {
		return g.next.SetIfAbsent(ctx, key, value, ttl)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

type getResult struct {
	value string
	ok    bool
}

// Get implements Store.
func (g *GuardedStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := g.do("get", key, func() (any, error) {
		val, ok, err := g.next.Get(ctx, key)
		return getResult{value: val, ok: ok}, err
	})
	if err != nil {
		return "", false, err
	}
	r := v.(getResult)
	return r.value, r.ok, nil
}

// Set implements Store.
func (g *GuardedStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := g.do("set", key, func() (any, error) {
		return nil, g.next.Set(ctx, key, value, ttl)
	})
	return err
}

// Delete implements Store.
func (g *GuardedStore) Delete(ctx context.Context, keys ...string) error {
	_, err := g.do("del", "", func() (any, error) {
		return nil, g.next.Delete(ctx, keys...)
	})
	return err
}

// Ping bypasses the guard so health checks observe the real backend.
func (g *GuardedStore) Ping(ctx context.Context) error {
	return g.next.Ping(ctx)
}

// Close implements Store.
func (g *GuardedStore) Close() error {
	return g.next.Close()
}

// GuardState returns the guard's state name.
func (g *GuardedStore) GuardState() string {
	return g.cb.State().String()
}

package cache

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Fetch produces the response for a cache miss.
type Fetch func(ctx context.Context) ([]byte, error)

// Middleware serves cacheable operations from a Cache.
type Middleware struct {
	cache  Cache
	keyer  Keyer
	policy Policy
	group  singleflight.Group
}

// NewMiddleware creates a Middleware. A nil keyer uses DefaultKeyer.
func NewMiddleware(c Cache, keyer Keyer, policy Policy) *Middleware {
	if keyer == nil {
		keyer = DefaultKeyer{}
	}
	return &Middleware{cache: c, keyer: keyer, policy: policy}
}

// Execute returns the cached response for (operation, request) or calls
// fetch and caches its result. hit reports whether fetch was skipped.
//
// Concurrent misses for the same key share one fetch. The fetch runs
// detached from every caller's cancellation, and each caller stops waiting
// when its own ctx ends.
func (m *Middleware) Execute(ctx context.Context, operation string, request any, fetch Fetch) (resp []byte, hit bool, err error) {
	ttl := m.policy.TTLFor(operation)
	if ttl == 0 {
		resp, err = fetch(ctx)
		return resp, false, err
	}

	key, err := m.keyer.Key(operation, request)
	if err != nil {
		resp, err = fetch(ctx)
		return resp, false, err
	}

	if cached, ok := m.cache.Get(ctx, key); ok {
		return cached, true, nil
	}

	// The shared fetch outlives any one waiter; fetch bounds itself.
	fetchCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		out, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		_ = m.cache.Set(fetchCtx, key, out, ttl)
		return out, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]byte), false, nil
	case <-ctx.Done():
		return nil, false, fmt.Errorf("cache: abandoned wait for %s: %w", operation, ctx.Err())
	}
}

package resilience

import (
	"context"
	"sort"
	"sync"
	"time"
)

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum number of concurrent operations.
	// Default: 10
	MaxConcurrent int

	// MaxWait is the maximum time to wait for a slot.
	// Default: 0 (no waiting, fail immediately)
	MaxWait time.Duration
}

// Bulkhead limits concurrent operations.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
	rejected  int64
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

func (b *Bulkhead) acquired() {
	b.mu.Lock()
	b.active++
	b.maxActive = max(b.maxActive, b.active)
	b.mu.Unlock()
}

func (b *Bulkhead) reject() error {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
	return ErrBulkheadFull
}

// Acquire acquires a slot in the bulkhead.
// Returns ErrBulkheadFull if no slot becomes available within MaxWait.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		b.acquired()
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		return b.reject()
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		b.acquired()
		return nil
	case <-timer.C:
		return b.reject()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a slot in the bulkhead.
func (b *Bulkhead) Release() {
	select {
	case <-b.sem:
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	default:
	}
}

// Execute runs the operation within the bulkhead.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()

	return op(ctx)
}

// Metrics returns current bulkhead metrics.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BulkheadMetrics{
		Active:        b.active,
		MaxActive:     b.maxActive,
		Available:     b.config.MaxConcurrent - b.active,
		MaxConcurrent: b.config.MaxConcurrent,
		Rejected:      b.rejected,
	}
}

// BulkheadMetrics contains bulkhead statistics.
type BulkheadMetrics struct {
	Active        int   `json:"active"`
	MaxActive     int   `json:"max_active"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"max_concurrent"`
	Rejected      int64 `json:"rejected"`
}

// BulkheadGroup holds one lazily created bulkhead per dependency, so a slow
// downstream cannot consume the concurrency of the others.
type BulkheadGroup struct {
	config BulkheadConfig

	mu    sync.Mutex
	heads map[string]*Bulkhead
}

// NewBulkheadGroup creates a group whose members share config.
func NewBulkheadGroup(config BulkheadConfig) *BulkheadGroup {
	return &BulkheadGroup{config: config, heads: make(map[string]*Bulkhead)}
}

// For returns the bulkhead of dep.
func (g *BulkheadGroup) For(dep string) *Bulkhead {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.heads[dep]
	if !ok {
		b = NewBulkhead(g.config)
		g.heads[dep] = b
	}
	return b
}

// Metrics returns per-dependency metrics keyed by dependency name.
func (g *BulkheadGroup) Metrics() map[string]BulkheadMetrics {
	g.mu.Lock()
	names := make([]string, 0, len(g.heads))
	for name := range g.heads {
		names = append(names, name)
	}
	g.mu.Unlock()
	sort.Strings(names)

	out := make(map[string]BulkheadMetrics, len(names))
	for _, name := range names {
		out[name] = g.For(name).Metrics()
	}
	return out
}

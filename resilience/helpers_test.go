package resilience

import (
	"sync"
	"time"

	"github.com/jonwraymond/toolgate/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	// aligned to a minute boundary plus 10s
	return &fakeClock{now: time.Unix(1_700_000_050, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(threshold int, clock *fakeClock) (*Breaker, *store.MemoryStore) {
	s := store.NewMemoryStore(store.WithClock(clock.Now))
	b := NewBreaker(s, BreakerConfig{
		FailThreshold: threshold,
		Window:        time.Minute,
		OpenDuration:  30 * time.Second,
		TrialTimeout:  10 * time.Second,
		Now:           clock.Now,
	})
	return b, s
}

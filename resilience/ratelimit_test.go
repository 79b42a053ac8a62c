package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/toolgate/store"
)

func newTestLimiter(limit int, clock *fakeClock) *FixedWindowLimiter {
	s := store.NewMemoryStore(store.WithClock(clock.Now))
	return NewFixedWindowLimiter(s, FixedWindowConfig{Limit: limit, Now: clock.Now})
}

func TestNewFixedWindowLimiter_Defaults(t *testing.T) {
	cfg := NewFixedWindowLimiter(store.NewMemoryStore(), FixedWindowConfig{}).Config()

	if cfg.Limit != 60 {
		t.Errorf("Limit = %d, want 60", cfg.Limit)
	}
	if cfg.Window != time.Minute {
		t.Errorf("Window = %v, want 1m", cfg.Window)
	}
	if cfg.Slack != 15*time.Second {
		t.Errorf("Slack = %v, want 15s", cfg.Slack)
	}
}

func TestFixedWindowLimiter_TwoPerMinute(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(2, clock)
	ctx := context.Background()

	want := []bool{true, true, false}
	for i, allowed := range want {
		res, err := l.Check(ctx, "sess:abc", "flight_search")
		if err != nil {
			t.Fatalf("Check() #%d error = %v", i+1, err)
		}
		if res.Allowed != allowed {
			t.Errorf("Check() #%d Allowed = %v, want %v", i+1, res.Allowed, allowed)
		}
		if res.Limit != 2 {
			t.Errorf("Limit = %d, want 2", res.Limit)
		}
		if res.ResetInSeconds != 50 {
			t.Errorf("ResetInSeconds = %d, want 50", res.ResetInSeconds)
		}
		if i == 2 && res.Remaining != 0 {
			t.Errorf("Remaining on denied check = %d, want 0", res.Remaining)
		}
	}
}

func TestFixedWindowLimiter_CountMatchesIncrements(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(100, clock)
	ctx := context.Background()

	last := -1
	for i := 1; i <= 20; i++ {
		res, err := l.Check(ctx, "ip:1.2.3.4", "op")
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		count := res.Limit - res.Remaining
		if count != i {
			t.Errorf("count after %d checks = %d", i, count)
		}
		if count < last {
			t.Errorf("count decreased from %d to %d", last, count)
		}
		last = count
	}
}

func TestFixedWindowLimiter_NewWindowResets(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(1, clock)
	ctx := context.Background()

	if res, _ := l.Check(ctx, "c", "op"); !res.Allowed {
		t.Fatal("first check denied")
	}
	if res, _ := l.Check(ctx, "c", "op"); res.Allowed {
		t.Fatal("second check allowed")
	}

	clock.Advance(50 * time.Second)
	res, _ := l.Check(ctx, "c", "op")
	if !res.Allowed || res.ResetInSeconds != 60 {
		t.Errorf("Check() in next window = %+v, want allowed with reset 60", res)
	}
}

func TestFixedWindowLimiter_KeysAreIndependent(t *testing.T) {
	l := newTestLimiter(1, newFakeClock())
	ctx := context.Background()

	for _, key := range [][2]string{{"a", "op1"}, {"a", "op2"}, {"b", "op1"}} {
		if res, _ := l.Check(ctx, key[0], key[1]); !res.Allowed {
			t.Errorf("Check(%s, %s) denied", key[0], key[1])
		}
	}
}

func TestFixedWindowLimiter_StoreFailure(t *testing.T) {
	s := store.NewMemoryStore()
	_ = s.Close()
	l := NewFixedWindowLimiter(s, FixedWindowConfig{Limit: 1})

	_, err := l.Check(context.Background(), "c", "op")
	if !errors.Is(err, ErrLimiterUnavailable) || !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Check() error = %v, want limiter and store unavailable", err)
	}
}

func TestFixedWindowLimiter_Enforce(t *testing.T) {
	ctx := context.Background()

	t.Run("denied", func(t *testing.T) {
		l := newTestLimiter(1, newFakeClock())
		_, _, _ = l.Enforce(ctx, "c", "op", FailOpen)

		res, degraded, err := l.Enforce(ctx, "c", "op", FailOpen)
		var rle *RateLimitError
		if !errors.As(err, &rle) || degraded {
			t.Fatalf("Enforce() = %v, %v, want *RateLimitError", degraded, err)
		}
		if rle.Result.ResetInSeconds != res.ResetInSeconds || KindOf(err) != KindRateLimited {
			t.Errorf("RateLimitError = %+v", rle)
		}
	})

	closed := store.NewMemoryStore()
	_ = closed.Close()
	l := NewFixedWindowLimiter(closed, FixedWindowConfig{Limit: 5})

	t.Run("fail open", func(t *testing.T) {
		res, degraded, err := l.Enforce(ctx, "c", "op", FailOpen)
		if err != nil || !degraded || !res.Allowed {
			t.Errorf("Enforce() = %+v, %v, %v, want degraded admission", res, degraded, err)
		}
	})

	t.Run("fail closed", func(t *testing.T) {
		_, degraded, err := l.Enforce(ctx, "c", "op", FailClosed)
		if !errors.Is(err, ErrLimiterUnavailable) || !degraded {
			t.Errorf("Enforce() = %v, %v, want ErrLimiterUnavailable", degraded, err)
		}
	})
}

func TestParseLimiterPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    LimiterPolicy
		wantErr bool
	}{
		{"", FailOpen, false},
		{"fail_open", FailOpen, false},
		{"fail_closed", FailClosed, false},
		{"sometimes", FailOpen, true},
	}
	for _, tt := range tests {
		got, err := ParseLimiterPolicy(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseLimiterPolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}

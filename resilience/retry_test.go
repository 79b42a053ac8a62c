package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRetry_Defaults(t *testing.T) {
	cfg := NewRetry(RetryConfig{}).Config()

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 100*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 100ms", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2", cfg.Multiplier)
	}
}

func TestRetry_Execute(t *testing.T) {
	errDown := errors.New("store down")

	tests := []struct {
		name         string
		failures     int
		maxAttempts  int
		wantAttempts int
		wantErr      bool
	}{
		{name: "first attempt", failures: 0, maxAttempts: 3, wantAttempts: 1},
		{name: "recovers", failures: 2, maxAttempts: 3, wantAttempts: 3},
		{name: "exhausted", failures: 5, maxAttempts: 3, wantAttempts: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(RetryConfig{MaxAttempts: tt.maxAttempts, InitialDelay: time.Millisecond})

			attempts := 0
			err := r.Execute(context.Background(), func(ctx context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return errDown
				}
				return nil
			})

			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if !tt.wantErr {
				if err != nil {
					t.Errorf("Execute() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrMaxRetriesExceeded) || !errors.Is(err, errDown) {
				t.Errorf("Execute() error = %v, want ErrMaxRetriesExceeded wrapping cause", err)
			}
		})
	}
}

func TestRetry_Permanent(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond})
	errBadURL := errors.New("bad url")

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(errBadURL)
	})

	if err != errBadURL {
		t.Errorf("Execute() error = %v, want %v", err, errBadURL)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) != nil")
	}
}

func TestRetry_RetryIf(t *testing.T) {
	errFatal := errors.New("fatal")
	r := NewRetry(RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		RetryIf:      func(err error) bool { return !errors.Is(err, errFatal) },
	})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errFatal
	})

	if err != errFatal || attempts != 1 {
		t.Errorf("Execute() = %v after %d attempts, want fatal after 1", err, attempts)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 10, InitialDelay: 100 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := r.Execute(ctx, func(ctx context.Context) error {
		return errors.New("down")
	})

	if err != context.Canceled {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("down")
	})

	if len(delays) != 2 {
		t.Fatalf("OnRetry calls = %d, want 2", len(delays))
	}
	if delays[0] != time.Millisecond || delays[1] != 2*time.Millisecond {
		t.Errorf("delays = %v, want [1ms 2ms]", delays)
	}
}

func TestRetry_BackoffStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy BackoffStrategy
		want     []time.Duration
	}{
		{"exponential", BackoffExponential, []time.Duration{10, 20, 40, 50}},
		{"linear", BackoffLinear, []time.Duration{10, 20, 30, 40}},
		{"constant", BackoffConstant, []time.Duration{10, 10, 10, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(RetryConfig{
				InitialDelay: 10 * time.Millisecond,
				MaxDelay:     50 * time.Millisecond,
				Strategy:     tt.strategy,
			})
			for i, want := range tt.want {
				if got := r.calculateDelay(i + 1); got != want*time.Millisecond {
					t.Errorf("calculateDelay(%d) = %v, want %v", i+1, got, want*time.Millisecond)
				}
			}
		})
	}
}

func TestRetry_Jitter(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: 100 * time.Millisecond, Strategy: BackoffConstant, Jitter: true})

	for i := 0; i < 20; i++ {
		d := r.calculateDelay(1)
		if d < 100*time.Millisecond || d >= 125*time.Millisecond {
			t.Fatalf("calculateDelay() = %v, want within [100ms, 125ms)", d)
		}
	}
}

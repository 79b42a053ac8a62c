package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewTimeout_Default(t *testing.T) {
	if got := NewTimeout(TimeoutConfig{}).Config().Timeout; got != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", got)
	}
}

func TestTimeout_Execute(t *testing.T) {
	errStep := errors.New("step failed")

	tests := []struct {
		name    string
		timeout time.Duration
		op      func(context.Context) error
		want    error
	}{
		{
			name:    "success",
			timeout: time.Second,
			op:      func(context.Context) error { return nil },
		},
		{
			name:    "error passes through",
			timeout: time.Second,
			op:      func(context.Context) error { return errStep },
			want:    errStep,
		},
		{
			name:    "ignores cancellation",
			timeout: 10 * time.Millisecond,
			op: func(context.Context) error {
				time.Sleep(200 * time.Millisecond)
				return nil
			},
			want: ErrTimeout,
		},
		{
			name:    "honours cancellation",
			timeout: 10 * time.Millisecond,
			op: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			want: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			err := NewTimeout(TimeoutConfig{Timeout: tt.timeout}).Execute(context.Background(), tt.op)
			if err != tt.want {
				t.Errorf("Execute() error = %v, want %v", err, tt.want)
			}
			if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
				t.Errorf("Execute() took %v, the wait must be abandoned promptly", elapsed)
			}
		})
	}
}

func TestTimeout_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	err := NewTimeout(TimeoutConfig{Timeout: time.Second}).Execute(ctx, func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})

	if err != context.Canceled {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestTimeout_OnAbandon(t *testing.T) {
	late := make(chan error, 1)
	errLate := errors.New("late")

	err := NewTimeout(TimeoutConfig{
		Timeout:   10 * time.Millisecond,
		OnAbandon: func(err error) { late <- err },
	}).Execute(context.Background(), func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return errLate
	})

	if err != ErrTimeout {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
	select {
	case got := <-late:
		if got != errLate {
			t.Errorf("OnAbandon(%v), want %v", got, errLate)
		}
	case <-time.After(time.Second):
		t.Error("OnAbandon was not called")
	}
}

func TestExecuteWithTimeout(t *testing.T) {
	err := ExecuteWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	if err != ErrTimeout {
		t.Errorf("ExecuteWithTimeout() error = %v, want ErrTimeout", err)
	}
}

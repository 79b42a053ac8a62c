package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for store operations.
var (
	// ErrUnavailable matches every backend failure.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("store: invalid key")
)

// Store is the shared key-value contract.
//
// A zero ttl means the key does not expire.
type Store interface {
	// IncrWithExpiry atomically increments key and returns the new count.
	// When the increment creates the key, ttl is applied in the same step.
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// SetIfAbsent sets key to value only if the key is absent or expired.
	// It reports whether this caller performed the set.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set unconditionally stores value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// OpError describes a failed backend operation.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap exposes both ErrUnavailable and the backend cause.
func (e *OpError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

func opError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Key: key, Err: err}
}

// ValidateKey rejects empty keys.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}

var (
	errClosed     = errors.New("closed")
	errNotInteger = errors.New("value is not an integer")
)

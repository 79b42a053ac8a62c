package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonwraymond/toolgate/store"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Cache stores serialized responses.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; a backend failure is a miss.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value for ttl. A non-positive ttl stores nothing.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey checks that key is usable.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// StoreCache is a Cache backed by a store.Store.
type StoreCache struct {
	kv store.Store
}

// NewStoreCache wraps kv.
func NewStoreCache(kv store.Store) *StoreCache {
	return &StoreCache{kv: kv}
}

func (c *StoreCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if ValidateKey(key) != nil {
		return nil, false
	}
	v, ok, err := c.kv.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	return []byte(v), true
}

func (c *StoreCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	return c.kv.Set(ctx, key, string(value), ttl)
}

func (c *StoreCache) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return c.kv.Delete(ctx, key)
}

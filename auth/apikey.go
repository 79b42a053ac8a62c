package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// DefaultAPIKeyHeader carries API keys.
const DefaultAPIKeyHeader = "X-API-Key"

// HashAPIKey returns the SHA-256 hex digest under which a key is stored.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// APIKeyStore maps key hashes to principals.
type APIKeyStore interface {
	// Lookup returns the principal for hash and whether it is known.
	Lookup(ctx context.Context, hash string) (string, bool, error)
}

// MemoryAPIKeyStore is an in-memory APIKeyStore.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewMemoryAPIKeyStore creates an empty store.
func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{keys: make(map[string]string)}
}

// ParseAPIKeys builds a store from "principal:key" pairs separated by commas.
func ParseAPIKeys(list string) (*MemoryAPIKeyStore, error) {
	s := NewMemoryAPIKeyStore()
	for _, pair := range strings.Split(list, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		principal, key, ok := strings.Cut(pair, ":")
		if !ok || principal == "" || key == "" {
			return nil, fmt.Errorf("auth: api key entry %q: want principal:key", principal)
		}
		s.Add(principal, key)
	}
	return s, nil
}

// Add registers key for principal.
func (s *MemoryAPIKeyStore) Add(principal, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[HashAPIKey(key)] = principal
}

// Len returns the number of registered keys.
func (s *MemoryAPIKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func (s *MemoryAPIKeyStore) Lookup(_ context.Context, hash string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.keys[hash]
	return p, ok, nil
}

// APIKeyAuthenticator validates keys from a header.
type APIKeyAuthenticator struct {
	header string
	store  APIKeyStore
}

// NewAPIKeyAuthenticator reads keys from header (DefaultAPIKeyHeader when empty).
func NewAPIKeyAuthenticator(header string, store APIKeyStore) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &APIKeyAuthenticator{header: header, store: store}
}

func (a *APIKeyAuthenticator) Name() string { return "api_key" }

func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, h http.Header) (*Identity, error) {
	key := strings.TrimSpace(h.Get(a.header))
	if key == "" {
		return nil, ErrMissingCredentials
	}
	principal, ok, err := a.store.Lookup(ctx, HashAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("auth: api key lookup: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return &Identity{Principal: principal, Method: MethodAPIKey}, nil
}

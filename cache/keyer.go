package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer derives cache keys from an operation and its request.
//
// Contract:
// - Determinism: equal requests produce equal keys regardless of map order.
type Keyer interface {
	Key(operation string, request any) (string, error)
}

// DefaultKeyer produces keys of the form cache:<operation>:<hash>, where
// hash is the first 16 hex characters of SHA-256 over the request JSON.
// encoding/json sorts map keys, which makes the encoding canonical.
type DefaultKeyer struct {
	// Prefix replaces "cache:" when set.
	Prefix string
}

// Key implements Keyer.
func (k DefaultKeyer) Key(operation string, request any) (string, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("cache: encode request: %w", err)
	}
	sum := sha256.Sum256(raw)

	prefix := k.Prefix
	if prefix == "" {
		prefix = "cache:"
	}
	return prefix + operation + ":" + hex.EncodeToString(sum[:8]), nil
}

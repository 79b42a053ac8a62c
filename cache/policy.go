package cache

import "time"

// Policy decides which operations are cached and for how long.
type Policy struct {
	// TTLs maps an operation name to its entry lifetime. Operations not
	// listed are never cached.
	TTLs map[string]time.Duration

	// MaxTTL clamps every entry when positive.
	MaxTTL time.Duration
}

// TTLFor returns the lifetime for operation, or 0 when it is not cacheable.
func (p Policy) TTLFor(operation string) time.Duration {
	ttl := p.TTLs[operation]
	if ttl <= 0 {
		return 0
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		return p.MaxTTL
	}
	return ttl
}

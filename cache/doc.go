// Package cache memoizes idempotent tool responses in the shared KV store.
//
// Keys are derived from the operation name and a hash of the canonical JSON
// request, so identical lookups from different gateway instances share one
// entry. Concurrent misses for the same key within an instance collapse
// into a single upstream call. Errors are never cached.
package cache

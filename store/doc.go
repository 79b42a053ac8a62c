// Package store provides typed access to the shared key-value store used by
// the rate limiter and the circuit breaker.
//
// Every mutation is a single atomic primitive: IncrWithExpiry arms the expiry
// in the same step as the first increment, and SetIfAbsent is a conditional
// set. Callers never read-modify-write across two round trips.
//
// Three implementations are provided:
//
//   - RedisStore talks to Redis through go-redis. IncrWithExpiry runs as a
//     Lua script and SetIfAbsent maps to SET NX PX.
//   - MemoryStore is an in-process map guarded by a mutex, for tests and
//     single-node deployments.
//   - GuardedStore wraps another Store with a local gobreaker so a dead
//     backend is detected once and then rejected without network waits.
//
// All backend failures are reported as *OpError values, which match
// ErrUnavailable through errors.Is. Callers use this to tell "the store is
// down" apart from "the protected dependency is unhealthy".
package store

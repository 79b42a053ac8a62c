// Package trip implements the flight search workflow and its HTTP entry
// point.
//
// A search resolves origin and destination to airports, saves a trip
// draft, then runs search_flights and research_destination concurrently
// and persists the search and its offers once both finished. Every tool
// call goes through the tools client, so it is gated by the dependency's
// circuit breaker.
//
// Failures map to HTTP statuses by kind: rate_limited 429 with Retry-After,
// dependency_unavailable 503, dependency_call_failed 502, timeout 504 and
// workflow_failed 500. Invalid requests answer 400.
package trip

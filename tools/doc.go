// Package tools is the orchestrator's client for the flight and db tool
// services.
//
// Every call goes through a resilience.Invoker, so it is gated by the
// circuit breaker of its dependency and reports exactly one outcome. Calls
// are POSTs of a JSON payload carrying the correlation ID in X-Trace-Id and
// the W3C trace context. Idempotent lookups can be served from a
// cache.Middleware. Each permitted call is recorded to db_tool's
// log_tool_call endpoint in the background.
//
// The package also holds the request and response types shared by the tool
// services and the orchestrator.
package tools

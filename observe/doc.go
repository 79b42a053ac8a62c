// Package observe provides the gateway's telemetry: a zap-backed structured
// logger, OpenTelemetry spans for tool calls and workflow steps, and the
// counters and histograms exported for calls, breaker transitions and rate
// limit decisions.
//
// Log entries automatically carry trace_id, span_id and correlation_id when
// the context holds them. Sensitive keys listed in RedactedFields are
// replaced before encoding.
package observe

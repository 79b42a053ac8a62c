// Package toolserver is the HTTP plumbing shared by the tool services: JSON
// request decoding and validation, {"detail": ...} error bodies,
// GET /health and GET /tools/registry, and server spans that continue the
// orchestrator's trace.
package toolserver

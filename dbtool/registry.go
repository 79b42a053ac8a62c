package dbtool

import "github.com/jonwraymond/toolgate/tools"

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{"type": "object", "required": required, "properties": props}
}

var (
	str      = map[string]any{"type": "string"}
	okSchema = object([]string{"ok"}, map[string]any{"ok": map[string]any{"type": "boolean"}})
)

// Registry lists the tools served by the db tool service.
func Registry() []tools.RegistryTool {
	return []tools.RegistryTool{
		{
			Name:        "save_trip",
			Description: "Create a trip draft.",
			InputSchema: object([]string{"session_id", "trip_type"}, map[string]any{
				"session_id": str, "trip_type": str, "status": str,
			}),
			OutputSchema: object([]string{"trip_id"}, map[string]any{"trip_id": str}),
			TimeoutMs:    2000,
			RateLimit:    "120/min/user",
		},
		{
			Name:        "save_search",
			Description: "Record the parameters of a flight search.",
			InputSchema: object([]string{"trip_id", "provider", "query_hash"}, map[string]any{
				"trip_id": str, "provider": str, "query_hash": str,
				"params_json": map[string]any{"type": "object"},
			}),
			OutputSchema: object([]string{"search_id"}, map[string]any{"search_id": str}),
			TimeoutMs:    2000,
			RateLimit:    "120/min/user",
		},
		{
			Name:        "save_offers",
			Description: "Store the offers returned by a search.",
			InputSchema: object([]string{"search_id", "offers"}, map[string]any{
				"search_id": str,
				"offers":    map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
			}),
			OutputSchema: okSchema,
			TimeoutMs:    3000,
			RateLimit:    "120/min/user",
		},
		{
			Name:        "log_tool_call",
			Description: "Append an audit record for a tool call.",
			InputSchema: object([]string{"trace_id", "tool_name", "status"}, map[string]any{
				"trace_id": str, "tool_name": str, "status": str,
				"input_json":  map[string]any{"type": "object"},
				"output_json": map[string]any{"type": "object"},
				"latency_ms":  map[string]any{"type": "integer", "minimum": 0},
			}),
			OutputSchema: okSchema,
			TimeoutMs:    2000,
			RateLimit:    "600/min/service",
		},
	}
}

package flighttool

import "github.com/jonwraymond/toolgate/tools"

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{"type": "object", "required": required, "properties": props}
}

var iata = map[string]any{"type": "string", "pattern": "^[A-Z]{3}$"}

// Registry lists the tools served by the flight tool service.
func Registry() []tools.RegistryTool {
	leg := object([]string{"origin", "destination", "date"}, map[string]any{
		"origin":      iata,
		"destination": iata,
		"date":        map[string]any{"type": "string", "format": "date"},
	})
	candidate := object([]string{"code", "city"}, map[string]any{
		"code":    iata,
		"city":    map[string]any{"type": "string"},
		"country": map[string]any{"type": "string"},
		"name":    map[string]any{"type": "string"},
	})

	return []tools.RegistryTool{
		{
			Name:        "resolve_location",
			Description: "Resolve a city name or IATA code to airport candidates.",
			InputSchema: object([]string{"query"}, map[string]any{
				"query": map[string]any{"type": "string", "minLength": 2, "maxLength": 64},
			}),
			OutputSchema: object([]string{"candidates"}, map[string]any{
				"candidates": map[string]any{"type": "array", "items": candidate},
			}),
			TimeoutMs: 2000,
			RateLimit: "60/min/user",
		},
		{
			Name:        "search_flights",
			Description: "Search flight offers for one to four legs.",
			InputSchema: object([]string{"legs"}, map[string]any{
				"legs":        map[string]any{"type": "array", "items": leg, "minItems": 1, "maxItems": 4},
				"max_results": map[string]any{"type": "integer", "minimum": 1, "maximum": 50, "default": 25},
				"max_stops":   map[string]any{"type": "integer", "minimum": 0, "maximum": 3, "default": 2},
				"max_price":   map[string]any{"type": "number", "minimum": 0},
				"currency":    map[string]any{"type": "string", "default": "USD"},
			}),
			OutputSchema: object([]string{"flights", "count"}, map[string]any{
				"flights": map[string]any{"type": "array"},
				"count":   map[string]any{"type": "integer"},
				"cached":  map[string]any{"type": "boolean"},
			}),
			TimeoutMs: 5000,
			RateLimit: "20/min/user",
		},
		{
			Name:        "city_research",
			Description: "Summarize a destination by airport code.",
			InputSchema: object([]string{"code"}, map[string]any{"code": iata}),
			OutputSchema: object([]string{"code", "city", "summary", "highlights"}, map[string]any{
				"code":       iata,
				"city":       map[string]any{"type": "string"},
				"summary":    map[string]any{"type": "string"},
				"highlights": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			}),
			TimeoutMs: 3000,
			RateLimit: "60/min/user",
		},
	}
}

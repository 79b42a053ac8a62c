package records

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jonwraymond/toolgate/tools"
)

// Sentinel errors for record operations.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("records: not found")

	// ErrUnknownDriver is returned for an unsupported driver name.
	ErrUnknownDriver = errors.New("records: unknown driver")
)

// Trip is a saved trip.
type Trip struct {
	TripID    string    `json:"trip_id"`
	SessionID string    `json:"session_id"`
	TripType  string    `json:"trip_type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Search is a saved search of a trip.
type Search struct {
	SearchID  string          `json:"search_id"`
	TripID    string          `json:"trip_id"`
	Provider  string          `json:"provider"`
	Params    json.RawMessage `json:"params_json"`
	QueryHash string          `json:"query_hash"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToolCall is an audit record of a downstream call.
type ToolCall struct {
	CallID    int64           `json:"call_id"`
	TraceID   string          `json:"trace_id"`
	ToolName  string          `json:"tool_name"`
	Input     json.RawMessage `json:"input_json"`
	Output    json.RawMessage `json:"output_json"`
	LatencyMs int64           `json:"latency_ms"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// TripRecord is a trip with its searches and offers.
type TripRecord struct {
	Trip     Trip                `json:"trip"`
	Searches []Search            `json:"searches"`
	Offers   []tools.FlightOffer `json:"offers"`
}

package tools

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AirportCandidate is one airport matching a location query.
type AirportCandidate struct {
	Code    string `json:"code" validate:"iata"`
	City    string `json:"city" validate:"required"`
	Country string `json:"country,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Validate checks the IATA code.
func (a AirportCandidate) Validate() error {
	return ValidateStruct(a)
}

// TripLeg is one origin/destination/date leg.
type TripLeg struct {
	Origin      string `json:"origin" validate:"iata"`
	Destination string `json:"destination" validate:"iata"`
	Date        string `json:"date" validate:"len=10"` // YYYY-MM-DD
}

// Passengers counts travellers by age band.
type Passengers struct {
	Adults   int `json:"adults" validate:"min=1,max=9"`
	Children int `json:"children,omitempty" validate:"min=0,max=9"`
	Infants  int `json:"infants,omitempty" validate:"min=0,max=9"`
}

// UnmarshalJSON defaults Adults to 1.
func (p *Passengers) UnmarshalJSON(data []byte) error {
	type plain Passengers
	v := plain{Adults: 1}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Passengers(v)
	return nil
}

// FlightOffer is a normalized offer returned by search_flights.
type FlightOffer struct {
	OfferID         string          `json:"offer_id"`
	Airline         string          `json:"airline"`
	PriceTotal      decimal.Decimal `json:"price_total"`
	Currency        string          `json:"currency"`
	DurationMinutes int             `json:"duration_minutes"`
	Stops           int             `json:"stops"`
	Legs            []TripLeg       `json:"legs"`
	Source          string          `json:"source"`
}

// ResolveLocationRequest asks for airports matching a free-text query.
type ResolveLocationRequest struct {
	Query string `json:"query" validate:"min=2,max=64"`
}

// Validate enforces the query length in characters.
func (r ResolveLocationRequest) Validate() error {
	return ValidateStruct(r)
}

// ResolveLocationResponse lists candidates, best match first.
type ResolveLocationResponse struct {
	Candidates []AirportCandidate `json:"candidates"`
}

// SearchFlightsRequest searches offers for one to four legs.
type SearchFlightsRequest struct {
	Legs       []TripLeg        `json:"legs" validate:"min=1,max=4,dive"`
	Passengers *Passengers      `json:"passengers,omitempty" validate:"omitempty"`
	MaxResults int              `json:"max_results" validate:"min=1,max=50"`
	MaxStops   int              `json:"max_stops" validate:"min=0,max=3"`
	MaxPrice   *decimal.Decimal `json:"max_price,omitempty" validate:"omitempty,nonnegative_decimal"`
	Currency   string           `json:"currency" validate:"len=3"`
}

// UnmarshalJSON applies the request defaults before decoding.
func (r *SearchFlightsRequest) UnmarshalJSON(data []byte) error {
	type plain SearchFlightsRequest
	v := plain{MaxResults: 25, MaxStops: 2, Currency: "USD"}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = SearchFlightsRequest(v)
	return nil
}

// Validate enforces the search bounds.
func (r SearchFlightsRequest) Validate() error {
	return ValidateStruct(r)
}

// SearchFlightsResponse carries the offers found.
type SearchFlightsResponse struct {
	Flights []FlightOffer `json:"flights"`
	Count   int           `json:"count"`
	Cached  bool          `json:"cached"`
}

// CityResearchRequest asks for destination facts.
type CityResearchRequest struct {
	Code string `json:"code" validate:"iata"`
}

// Validate checks the IATA code.
func (r CityResearchRequest) Validate() error {
	return ValidateStruct(r)
}

// CityResearch summarizes a destination.
type CityResearch struct {
	Code       string   `json:"code"`
	City       string   `json:"city"`
	Country    string   `json:"country,omitempty"`
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
	BestMonths []string `json:"best_months,omitempty"`
}

// SaveTripRequest creates a trip draft.
type SaveTripRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	TripType  string `json:"trip_type" validate:"required"`
	Status    string `json:"status"`
}

// Validate checks required fields.
func (r SaveTripRequest) Validate() error {
	return ValidateStruct(r)
}

// SaveTripResponse returns the new trip ID.
type SaveTripResponse struct {
	TripID string `json:"trip_id"`
}

// SaveSearchRequest records the parameters of one search.
type SaveSearchRequest struct {
	TripID    string          `json:"trip_id" validate:"required"`
	Provider  string          `json:"provider" validate:"required"`
	Params    json.RawMessage `json:"params_json"`
	QueryHash string          `json:"query_hash" validate:"required"`
}

// Validate checks required fields.
func (r SaveSearchRequest) Validate() error {
	return ValidateStruct(r)
}

// SaveSearchResponse returns the new search ID.
type SaveSearchResponse struct {
	SearchID string `json:"search_id"`
}

// SaveOffersRequest stores the offers of a search.
type SaveOffersRequest struct {
	SearchID string        `json:"search_id" validate:"required"`
	Offers   []FlightOffer `json:"offers"`
}

// Validate checks required fields.
func (r SaveOffersRequest) Validate() error {
	return ValidateStruct(r)
}

// OKResponse acknowledges a write.
type OKResponse struct {
	OK bool `json:"ok"`
}

// LogToolCallRequest is one audit record of a downstream call.
type LogToolCallRequest struct {
	TraceID   string          `json:"trace_id" validate:"required"`
	ToolName  string          `json:"tool_name" validate:"required"`
	Input     json.RawMessage `json:"input_json"`
	Output    json.RawMessage `json:"output_json"`
	LatencyMs int64           `json:"latency_ms"`
	Status    string          `json:"status" validate:"required"`
}

// Validate checks required fields.
func (r LogToolCallRequest) Validate() error {
	return ValidateStruct(r)
}

// RegistryTool describes one tool served by a tool service.
type RegistryTool struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Version      string         `json:"version"`
	InputSchema  map[string]any `json:"input_schema"`
	OutputSchema map[string]any `json:"output_schema"`
	TimeoutMs    int            `json:"timeout_ms"`
	RateLimit    string         `json:"rate_limit"`
}

// Registry lists the tools of a service.
type Registry struct {
	Tools []RegistryTool `json:"tools"`
}

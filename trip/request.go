package trip

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/jonwraymond/toolgate/tools"
)

// FlightSearchRequest is the body of POST /v1/flight_search.
type FlightSearchRequest struct {
	Origin      string           `json:"origin" validate:"min=2,max=64"`
	Destination string           `json:"destination" validate:"min=2,max=64"`
	Date        string           `json:"date" validate:"len=10"`
	SessionID   string           `json:"session_id,omitempty"`
	MaxResults  int              `json:"max_results" validate:"min=1,max=50"`
	MaxStops    int              `json:"max_stops" validate:"min=0,max=3"`
	MaxPrice    *decimal.Decimal `json:"max_price,omitempty" validate:"omitempty,nonnegative_decimal"`
	Currency    string           `json:"currency" validate:"len=3"`
}

// UnmarshalJSON applies the request defaults before decoding.
func (r *FlightSearchRequest) UnmarshalJSON(data []byte) error {
	type plain FlightSearchRequest
	v := plain{MaxResults: 10, MaxStops: 2, Currency: "USD"}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = FlightSearchRequest(v)
	return nil
}

// Validate enforces the request bounds. Lengths count characters.
func (r FlightSearchRequest) Validate() error {
	return tools.ValidateStruct(r)
}

// FlightSearchResponse is the aggregated result of a run.
type FlightSearchResponse struct {
	TraceID     string              `json:"trace_id"`
	TripID      string              `json:"trip_id"`
	SearchID    string              `json:"search_id"`
	Origin      string              `json:"origin"`
	Destination string              `json:"destination"`
	Results     []tools.FlightOffer `json:"results"`
	Research    *tools.CityResearch `json:"research,omitempty"`
}

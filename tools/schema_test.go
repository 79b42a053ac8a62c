package tools

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFlightsRequest_Defaults(t *testing.T) {
	var req SearchFlightsRequest
	require.NoError(t, json.Unmarshal([]byte(`{"legs":[{"origin":"CDG","destination":"JFK","date":"2026-11-01"}]}`), &req))

	assert.Equal(t, 25, req.MaxResults)
	assert.Equal(t, 2, req.MaxStops)
	assert.Equal(t, "USD", req.Currency)
	assert.NoError(t, req.Validate())
}

func TestSearchFlightsRequest_Validate(t *testing.T) {
	leg := TripLeg{Origin: "CDG", Destination: "JFK", Date: "2026-11-01"}
	valid := func() SearchFlightsRequest {
		return SearchFlightsRequest{Legs: []TripLeg{leg}, MaxResults: 10, MaxStops: 1, Currency: "EUR"}
	}
	neg := decimal.NewFromInt(-1)

	tests := []struct {
		name  string
		mut   func(*SearchFlightsRequest)
		field string
	}{
		{"no legs", func(r *SearchFlightsRequest) { r.Legs = nil }, "legs"},
		{"five legs", func(r *SearchFlightsRequest) { r.Legs = []TripLeg{leg, leg, leg, leg, leg} }, "legs"},
		{"bad origin", func(r *SearchFlightsRequest) { r.Legs = []TripLeg{{Origin: "cdg", Destination: "JFK", Date: "2026-11-01"}} }, "legs[0].origin"},
		{"bad date", func(r *SearchFlightsRequest) { r.Legs = []TripLeg{{Origin: "CDG", Destination: "JFK", Date: "tomorrow"}} }, "legs[0].date"},
		{"zero results", func(r *SearchFlightsRequest) { r.MaxResults = 0 }, "max_results"},
		{"too many results", func(r *SearchFlightsRequest) { r.MaxResults = 51 }, "max_results"},
		{"stops", func(r *SearchFlightsRequest) { r.MaxStops = 4 }, "max_stops"},
		{"price", func(r *SearchFlightsRequest) { r.MaxPrice = &neg }, "max_price"},
		{"currency", func(r *SearchFlightsRequest) { r.Currency = "EURO" }, "currency"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := valid()
			tc.mut(&r)
			err := r.Validate()
			require.ErrorIs(t, err, ErrInvalidRequest)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
	assert.NoError(t, valid().Validate())
}

func TestResolveLocationRequest_Validate(t *testing.T) {
	assert.ErrorIs(t, ResolveLocationRequest{Query: "p"}.Validate(), ErrInvalidRequest)
	assert.NoError(t, ResolveLocationRequest{Query: "pa"}.Validate())
}

func TestFlightOffer_PriceRoundTrip(t *testing.T) {
	offer := FlightOffer{OfferID: "mock_1", PriceTotal: decimal.RequireFromString("273.5")}
	data, err := json.Marshal(offer)
	require.NoError(t, err)

	var back FlightOffer
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.PriceTotal.Equal(offer.PriceTotal))

	// numeric prices from other producers decode too
	require.NoError(t, json.Unmarshal([]byte(`{"price_total": 250.0}`), &back))
	assert.True(t, back.PriceTotal.Equal(decimal.NewFromInt(250)))
}

func TestCatalog(t *testing.T) {
	c := NewCatalog("http://flights:8001/", "http://db:8002", 5*time.Second)

	ep, err := c.Endpoint(DepSearchFlights)
	require.NoError(t, err)
	assert.Equal(t, "http://flights:8001/tools/search_flights", ep)

	ep, err = c.Endpoint(DepSaveOffers)
	require.NoError(t, err)
	assert.Equal(t, "http://db:8002/tools/save_offers", ep)

	_, err = c.Endpoint("weather.forecast")
	assert.ErrorIs(t, err, ErrUnknownDependency)

	assert.Equal(t, 2*time.Second, c.Timeout(DepResolveLocation))
	assert.Equal(t, 5*time.Second, c.Timeout(DepSaveTrip))
	assert.Equal(t, 5*time.Second, Catalog{}.Timeout(DepSaveTrip))
}

func TestSplitDependency(t *testing.T) {
	ns, op := SplitDependency("db_tool.save_trip")
	assert.Equal(t, "db_tool", ns)
	assert.Equal(t, "save_trip", op)

	ns, op = SplitDependency("bare")
	assert.Equal(t, "", ns)
	assert.Equal(t, "bare", op)
}

func TestValidateStruct_RequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		req   interface{ Validate() error }
		field string
	}{
		{"trip session", SaveTripRequest{TripType: "one_way"}, "session_id"},
		{"trip type", SaveTripRequest{SessionID: "s-1"}, "trip_type"},
		{"search trip", SaveSearchRequest{Provider: "mock", QueryHash: "h"}, "trip_id"},
		{"search hash", SaveSearchRequest{TripID: "t", Provider: "mock"}, "query_hash"},
		{"offers search", SaveOffersRequest{}, "search_id"},
		{"log status", LogToolCallRequest{TraceID: "c", ToolName: "x"}, "status"},
		{"research code", CityResearchRequest{Code: "jfk"}, "code"},
		{"candidate city", AirportCandidate{Code: "JFK"}, "city"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.NotEmpty(t, ve.Reason)
		})
	}
}

func TestResolveLocationRequest_CountsCharacters(t *testing.T) {
	assert.NoError(t, ResolveLocationRequest{Query: "東京"}.Validate())
	assert.NoError(t, ResolveLocationRequest{Query: strings.Repeat("東", 64)}.Validate())

	var ve *ValidationError
	require.ErrorAs(t, ResolveLocationRequest{Query: strings.Repeat("東", 65)}.Validate(), &ve)
	assert.Equal(t, "query", ve.Field)
	assert.Equal(t, "length must be at most 64", ve.Reason)
}

func TestSearchFlightsRequest_Passengers(t *testing.T) {
	var req SearchFlightsRequest
	body := `{"legs":[{"origin":"CDG","destination":"JFK","date":"2026-11-01"}],"passengers":{"children":2}}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NotNil(t, req.Passengers)
	assert.Equal(t, 1, req.Passengers.Adults)
	assert.NoError(t, req.Validate())

	req.Passengers.Infants = 10
	var ve *ValidationError
	require.ErrorAs(t, req.Validate(), &ve)
	assert.Equal(t, "passengers.infants", ve.Field)
}

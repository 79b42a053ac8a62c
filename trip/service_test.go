package trip

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/resilience"
	"github.com/jonwraymond/toolgate/store"
	"github.com/jonwraymond/toolgate/tools"
	"github.com/jonwraymond/toolgate/workflow"
)

func fixedNow() time.Time { return time.Unix(1_700_000_050, 0) }

func validRequest() FlightSearchRequest {
	return FlightSearchRequest{
		Origin:      "paris",
		Destination: "new york",
		Date:        "2026-11-01",
		MaxResults:  3,
		MaxStops:    1,
		Currency:    "USD",
	}
}

func newTestService(t *testing.T, ft *fakeTools, limit int, opts ...workflow.Option) (*Service, store.Store) {
	t.Helper()
	g, err := NewGraph(ft, opts...)
	require.NoError(t, err)

	s := store.NewMemoryStore()
	cfg := ServiceConfig{Graph: g}
	if limit > 0 {
		cfg.Limiter = resilience.NewFixedWindowLimiter(s, resilience.FixedWindowConfig{Limit: limit, Now: fixedNow})
	}
	return NewService(cfg), s
}

func TestFlightSearch_Success(t *testing.T) {
	ft := newFakeTools()
	svc, _ := newTestService(t, ft, 0)

	ctx := observe.WithCorrelationID(context.Background(), "trace-1")
	resp, err := svc.FlightSearch(ctx, "ip:1.2.3.4", validRequest())
	require.NoError(t, err)

	assert.Equal(t, "trace-1", resp.TraceID)
	assert.Equal(t, "trip-1", resp.TripID)
	assert.Equal(t, "search-1", resp.SearchID)
	assert.Equal(t, "CDG", resp.Origin)
	assert.Equal(t, "JFK", resp.Destination)
	assert.Len(t, resp.Results, 3)
	require.NotNil(t, resp.Research)
	assert.Equal(t, "JFK", resp.Research.Code)

	assert.Equal(t, tools.SaveTripRequest{SessionID: "anonymous", TripType: "one-way", Status: "draft"}, ft.savedTrip)
	assert.Equal(t, "CDG:JFK:2026-11-01", ft.savedSearch.QueryHash)
	assert.Equal(t, "trip-1", ft.savedSearch.TripID)
	assert.Equal(t, tools.FlightTool, ft.savedSearch.Provider)
	assert.Equal(t, "search-1", ft.savedOffers.SearchID)
	assert.Len(t, ft.savedOffers.Offers, 3)

	var params tools.SearchFlightsRequest
	require.NoError(t, json.Unmarshal(ft.savedSearch.Params, &params))
	assert.Equal(t, "CDG", params.Legs[0].Origin)
	assert.Equal(t, 1, params.Passengers.Adults)
}

func TestFlightSearch_GeneratesTraceID(t *testing.T) {
	svc, _ := newTestService(t, newFakeTools(), 0)
	resp, err := svc.FlightSearch(context.Background(), "ip:x", validRequest())
	require.NoError(t, err)
	assert.Len(t, resp.TraceID, 36)
}

func TestFlightSearch_SessionIDIsSaved(t *testing.T) {
	ft := newFakeTools()
	svc, _ := newTestService(t, ft, 0)
	req := validRequest()
	req.SessionID = "sess-9"

	_, err := svc.FlightSearch(context.Background(), "sess:sess-9", req)
	require.NoError(t, err)
	assert.Equal(t, "sess-9", ft.savedTrip.SessionID)
}

func TestFlightSearch_UnresolvedLocationHaltsRun(t *testing.T) {
	ft := newFakeTools()
	svc, _ := newTestService(t, ft, 0)
	req := validRequest()
	req.Destination = "atlantis"

	_, err := svc.FlightSearch(context.Background(), "ip:x", req)
	require.ErrorIs(t, err, ErrUnresolvedLocation)
	assert.Equal(t, resilience.KindWorkflowFailed, resilience.KindOf(err))

	for _, op := range []string{"save_trip", "search_flights", "city_research", "save_search", "save_offers"} {
		assert.False(t, ft.called(op), "%s ran after resolve failed", op)
	}
}

func TestFlightSearch_SearchFailureStopsPersist(t *testing.T) {
	ft := newFakeTools()
	ft.errs["search_flights"] = &resilience.DependencyError{
		Dependency: tools.DepSearchFlights,
		State:      resilience.StateOpen,
	}
	svc, _ := newTestService(t, ft, 0)

	_, err := svc.FlightSearch(context.Background(), "ip:x", validRequest())
	require.Error(t, err)
	assert.Equal(t, resilience.KindDependencyUnavailable, resilience.KindOf(err))

	assert.True(t, ft.called("city_research"), "fan-out sibling should still run")
	assert.False(t, ft.called("save_search"))
	assert.False(t, ft.called("save_offers"))
}

func TestFlightSearch_RateLimited(t *testing.T) {
	ft := newFakeTools()
	svc, _ := newTestService(t, ft, 2)

	for range 2 {
		_, err := svc.FlightSearch(context.Background(), "user:alice", validRequest())
		require.NoError(t, err)
	}
	ft.calls = nil

	_, err := svc.FlightSearch(context.Background(), "user:alice", validRequest())
	var rle *resilience.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 0, rle.Result.Remaining)
	assert.Equal(t, 2, rle.Result.Limit)
	assert.Empty(t, ft.calls, "workflow ran for a limited caller")

	// other callers are unaffected
	_, err = svc.FlightSearch(context.Background(), "user:bob", validRequest())
	assert.NoError(t, err)
}

func TestFlightSearch_LimiterPolicy(t *testing.T) {
	g, err := NewGraph(newFakeTools())
	require.NoError(t, err)
	s := store.NewMemoryStore()
	require.NoError(t, s.Close())
	limiter := resilience.NewFixedWindowLimiter(s, resilience.FixedWindowConfig{Limit: 1})

	open := NewService(ServiceConfig{Graph: g, Limiter: limiter, Policy: resilience.FailOpen})
	_, err = open.FlightSearch(context.Background(), "ip:x", validRequest())
	assert.NoError(t, err)

	closed := NewService(ServiceConfig{Graph: g, Limiter: limiter, Policy: resilience.FailClosed})
	_, err = closed.FlightSearch(context.Background(), "ip:x", validRequest())
	assert.ErrorIs(t, err, resilience.ErrLimiterUnavailable)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestFlightSearch_Validation(t *testing.T) {
	svc, _ := newTestService(t, newFakeTools(), 0)
	req := validRequest()
	req.MaxResults = 51

	_, err := svc.FlightSearch(context.Background(), "ip:x", req)
	assert.ErrorIs(t, err, tools.ErrInvalidRequest)
}

func TestFlightSearch_RunTimeout(t *testing.T) {
	ft := newFakeTools()
	ft.searchBlock = make(chan struct{})
	defer close(ft.searchBlock)
	svc, _ := newTestService(t, ft, 0, workflow.WithRunTimeout(50*time.Millisecond))

	_, err := svc.FlightSearch(context.Background(), "ip:x", validRequest())
	assert.Equal(t, resilience.KindTimeout, resilience.KindOf(err))
}

func TestFlightSearchRequest_Defaults(t *testing.T) {
	var req FlightSearchRequest
	require.NoError(t, json.Unmarshal([]byte(`{"origin":"paris","destination":"new york","date":"2026-11-01"}`), &req))
	assert.Equal(t, 10, req.MaxResults)
	assert.Equal(t, 2, req.MaxStops)
	assert.Equal(t, "USD", req.Currency)
	assert.NoError(t, req.Validate())
}

func TestFlightSearchRequest_LengthsCountCharacters(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		field  string
	}{
		{"two cjk characters", "東京", ""},
		{"thirty cjk characters", strings.Repeat("東", 30), ""},
		{"sixty four characters", strings.Repeat("é", 64), ""},
		{"sixty five characters", strings.Repeat("é", 65), "origin"},
		{"one character", "東", "origin"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			req.Origin = tc.origin
			err := req.Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *tools.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.ErrorIs(t, err, tools.ErrInvalidRequest)
		})
	}
}

func TestFlightSearchRequest_Bounds(t *testing.T) {
	neg := decimal.NewFromInt(-5)
	tests := []struct {
		name  string
		mut   func(*FlightSearchRequest)
		field string
	}{
		{"short date", func(r *FlightSearchRequest) { r.Date = "2026-1-1" }, "date"},
		{"results", func(r *FlightSearchRequest) { r.MaxResults = 51 }, "max_results"},
		{"stops", func(r *FlightSearchRequest) { r.MaxStops = -1 }, "max_stops"},
		{"price", func(r *FlightSearchRequest) { r.MaxPrice = &neg }, "max_price"},
		{"currency", func(r *FlightSearchRequest) { r.Currency = "US" }, "currency"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mut(&req)
			var ve *tools.ValidationError
			require.ErrorAs(t, req.Validate(), &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

package records

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolgate/tools"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func exerciseStore(t *testing.T, s *SQLStore) {
	ctx := context.Background()

	tripID, err := s.CreateTrip(ctx, "anonymous", "one-way", "draft")
	require.NoError(t, err)
	require.NotEmpty(t, tripID)

	params := json.RawMessage(`{"legs":[{"origin":"CDG","destination":"JFK","date":"2026-11-01"}]}`)
	searchID, err := s.CreateSearch(ctx, tripID, "flight_tool", params, "CDG:JFK:2026-11-01")
	require.NoError(t, err)

	offers := []tools.FlightOffer{
		{OfferID: "mock_0", Airline: "AI", PriceTotal: decimal.RequireFromString("250"), Currency: "USD"},
		{OfferID: "mock_1", Airline: "EK", PriceTotal: decimal.RequireFromString("273.5"), Currency: "USD"},
	}
	require.NoError(t, s.AddOffers(ctx, searchID, offers))

	rec, err := s.GetTrip(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, tripID, rec.Trip.TripID)
	assert.Equal(t, "draft", rec.Trip.Status)
	assert.False(t, rec.Trip.CreatedAt.IsZero())
	require.Len(t, rec.Searches, 1)
	assert.Equal(t, searchID, rec.Searches[0].SearchID)
	assert.JSONEq(t, string(params), string(rec.Searches[0].Params))
	require.Len(t, rec.Offers, 2)
	assert.Equal(t, "mock_1", rec.Offers[1].OfferID)
	assert.True(t, rec.Offers[1].PriceTotal.Equal(decimal.RequireFromString("273.5")))

	_, err = s.GetTrip(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	id1, err := s.LogToolCall(ctx, ToolCall{
		TraceID: "trace-1", ToolName: "flight_tool.search_flights",
		Input: json.RawMessage(`{"a":1}`), Output: json.RawMessage(`{"b":2}`),
		LatencyMs: 12, Status: "ok",
	})
	require.NoError(t, err)
	id2, err := s.LogToolCall(ctx, ToolCall{TraceID: "trace-1", ToolName: "db_tool.save_trip", Status: "error"})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	steps, err := s.GetTrace(ctx, "trace-1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "flight_tool.search_flights", steps[0].ToolName)
	assert.JSONEq(t, `{"b":2}`, string(steps[0].Output))
	assert.Equal(t, int64(12), steps[0].LatencyMs)
	assert.Equal(t, "null", string(steps[1].Input))

	empty, err := s.GetTrace(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Ping(ctx))
}

func TestSQLStore_SQLite(t *testing.T) {
	exerciseStore(t, newTestStore(t))
}

func TestSQLStore_TripWithoutSearches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tripID, err := s.CreateTrip(ctx, "sess-1", "round-trip", "draft")
	require.NoError(t, err)

	rec, err := s.GetTrip(ctx, tripID)
	require.NoError(t, err)
	assert.NotNil(t, rec.Searches)
	assert.NotNil(t, rec.Offers)
	assert.Empty(t, rec.Offers)
}

func TestSQLStore_MigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	_, err := New(context.Background(), s.db, SQLite)
	assert.NoError(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: Postgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &SQLStore{dialect: SQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

package dbtool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonwraymond/toolgate/health"
	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/records"
	"github.com/jonwraymond/toolgate/tools"
	"github.com/jonwraymond/toolgate/toolserver"
)

// Records is the persistence the db tool serves. *records.SQLStore
// implements it.
type Records interface {
	CreateTrip(ctx context.Context, sessionID, tripType, status string) (string, error)
	CreateSearch(ctx context.Context, tripID, provider string, params json.RawMessage, queryHash string) (string, error)
	AddOffers(ctx context.Context, searchID string, offers []tools.FlightOffer) error
	LogToolCall(ctx context.Context, c records.ToolCall) (int64, error)
	GetTrip(ctx context.Context, tripID string) (records.TripRecord, error)
	GetTrace(ctx context.Context, traceID string) ([]records.ToolCall, error)
	Ping(ctx context.Context) error
}

// TraceResponse is the body of GET /tools/get_trace/{trace_id}.
type TraceResponse struct {
	TraceID string             `json:"trace_id"`
	Steps   []records.ToolCall `json:"steps"`
}

// NewHandler returns the db tool HTTP surface. When agg is set the database
// is registered as a readiness check.
func NewHandler(db Records, mw *observe.Middleware, agg *health.Aggregator) http.Handler {
	if agg != nil {
		agg.Register(health.NewPingChecker("database", db))
	}
	srv := toolserver.New(tools.DBTool, mw, agg)
	for _, t := range Registry() {
		srv.Register(t)
	}

	srv.Handle("POST /tools/save_trip", "save_trip", toolserver.JSON(
		func(ctx context.Context, req tools.SaveTripRequest) (tools.SaveTripResponse, error) {
			id, err := db.CreateTrip(ctx, req.SessionID, req.TripType, req.Status)
			if err != nil {
				return tools.SaveTripResponse{}, err
			}
			return tools.SaveTripResponse{TripID: id}, nil
		}))

	srv.Handle("POST /tools/save_search", "save_search", toolserver.JSON(
		func(ctx context.Context, req tools.SaveSearchRequest) (tools.SaveSearchResponse, error) {
			id, err := db.CreateSearch(ctx, req.TripID, req.Provider, req.Params, req.QueryHash)
			if err != nil {
				return tools.SaveSearchResponse{}, err
			}
			return tools.SaveSearchResponse{SearchID: id}, nil
		}))

	srv.Handle("POST /tools/save_offers", "save_offers", toolserver.JSON(
		func(ctx context.Context, req tools.SaveOffersRequest) (tools.OKResponse, error) {
			if err := db.AddOffers(ctx, req.SearchID, req.Offers); err != nil {
				return tools.OKResponse{}, err
			}
			return tools.OKResponse{OK: true}, nil
		}))

	srv.Handle("POST /tools/log_tool_call", "log_tool_call", toolserver.JSON(
		func(ctx context.Context, req tools.LogToolCallRequest) (tools.OKResponse, error) {
			_, err := db.LogToolCall(ctx, records.ToolCall{
				TraceID:   req.TraceID,
				ToolName:  req.ToolName,
				Input:     req.Input,
				Output:    req.Output,
				LatencyMs: req.LatencyMs,
				Status:    req.Status,
			})
			if err != nil {
				return tools.OKResponse{}, err
			}
			return tools.OKResponse{OK: true}, nil
		}))

	srv.Handle("GET /tools/get_trip/{trip_id}", "get_trip", func(w http.ResponseWriter, r *http.Request) {
		rec, err := db.GetTrip(r.Context(), r.PathValue("trip_id"))
		if err != nil {
			writeLookupError(w, err)
			return
		}
		toolserver.WriteJSON(w, http.StatusOK, rec)
	})

	srv.Handle("GET /tools/get_trace/{trace_id}", "get_trace", func(w http.ResponseWriter, r *http.Request) {
		traceID := r.PathValue("trace_id")
		steps, err := db.GetTrace(r.Context(), traceID)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		toolserver.WriteJSON(w, http.StatusOK, TraceResponse{TraceID: traceID, Steps: steps})
	})

	return srv
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, records.ErrNotFound) {
		err = fmt.Errorf("%w: %w", toolserver.ErrNotFound, err)
	}
	toolserver.WriteError(w, toolserver.StatusFor(err), err)
}

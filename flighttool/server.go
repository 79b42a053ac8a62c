package flighttool

import (
	"context"
	"net/http"

	"github.com/jonwraymond/toolgate/health"
	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/tools"
	"github.com/jonwraymond/toolgate/toolserver"
)

// NewHandler returns the flight tool HTTP surface.
func NewHandler(mw *observe.Middleware, agg *health.Aggregator) http.Handler {
	srv := toolserver.New(tools.FlightTool, mw, agg)
	for _, t := range Registry() {
		srv.Register(t)
	}

	srv.Handle("POST /tools/resolve_location", "resolve_location", toolserver.JSON(
		func(_ context.Context, req tools.ResolveLocationRequest) (tools.ResolveLocationResponse, error) {
			return tools.ResolveLocationResponse{Candidates: Resolve(req.Query)}, nil
		}))

	srv.Handle("POST /tools/search_flights", "search_flights", toolserver.JSON(
		func(ctx context.Context, req tools.SearchFlightsRequest) (tools.SearchFlightsResponse, error) {
			offers := MockOffers(req)
			srv.Logger().Debug(ctx, "mock search",
				observe.Field{Key: "legs", Value: len(req.Legs)},
				observe.Field{Key: "offers", Value: len(offers)})
			return tools.SearchFlightsResponse{Flights: offers, Count: len(offers)}, nil
		}))

	srv.Handle("POST /tools/city_research", "city_research", toolserver.JSON(
		func(_ context.Context, req tools.CityResearchRequest) (tools.CityResearch, error) {
			return Research(req.Code), nil
		}))

	return srv
}

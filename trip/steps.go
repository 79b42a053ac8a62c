package trip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/toolgate/tools"
	"github.com/jonwraymond/toolgate/workflow"
)

// Step names.
const (
	StepResolveLocations    = "resolve_locations"
	StepSaveTripDraft       = "save_trip_draft"
	StepSearchFlights       = "search_flights"
	StepResearchDestination = "research_destination"
	StepPersistResults      = "persist_results"
)

// ErrUnresolvedLocation is recorded when a location has no airport
// candidate.
var ErrUnresolvedLocation = errors.New("trip: could not resolve one or both locations")

// Tools is the set of tool operations the flight search calls.
type Tools interface {
	ResolveLocation(ctx context.Context, query string) ([]tools.AirportCandidate, error)
	SearchFlights(ctx context.Context, req tools.SearchFlightsRequest) (tools.SearchFlightsResponse, error)
	CityResearch(ctx context.Context, code string) (tools.CityResearch, error)
	SaveTrip(ctx context.Context, req tools.SaveTripRequest) (string, error)
	SaveSearch(ctx context.Context, req tools.SaveSearchRequest) (string, error)
	SaveOffers(ctx context.Context, req tools.SaveOffersRequest) error
}

type steps struct {
	tools Tools
}

func (s steps) resolveLocations(ctx context.Context, st *workflow.State[Data]) workflow.Patch[Data] {
	req := st.Data.Request
	var origin, dest []tools.AirportCandidate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		origin, err = s.tools.ResolveLocation(gctx, req.Origin)
		return err
	})
	g.Go(func() error {
		var err error
		dest, err = s.tools.ResolveLocation(gctx, req.Destination)
		return err
	})
	if err := g.Wait(); err != nil {
		return workflow.Fail[Data](err)
	}
	if len(origin) == 0 || len(dest) == 0 {
		return workflow.Fail[Data](ErrUnresolvedLocation)
	}

	return workflow.Set(func(d *Data) {
		d.OriginCode = origin[0].Code
		d.DestinationCode = dest[0].Code
	})
}

func (s steps) saveTripDraft(ctx context.Context, st *workflow.State[Data]) workflow.Patch[Data] {
	session := st.Data.Request.SessionID
	if session == "" {
		session = "anonymous"
	}
	tripID, err := s.tools.SaveTrip(ctx, tools.SaveTripRequest{
		SessionID: session,
		TripType:  "one-way",
		Status:    "draft",
	})
	if err != nil {
		return workflow.Fail[Data](err)
	}
	return workflow.Set(func(d *Data) { d.TripID = tripID })
}

func (s steps) searchRequest(d Data) tools.SearchFlightsRequest {
	return tools.SearchFlightsRequest{
		Legs: []tools.TripLeg{{
			Origin:      d.OriginCode,
			Destination: d.DestinationCode,
			Date:        d.Request.Date,
		}},
		Passengers: &tools.Passengers{Adults: 1},
		MaxResults: d.Request.MaxResults,
		MaxStops:   d.Request.MaxStops,
		MaxPrice:   d.Request.MaxPrice,
		Currency:   d.Request.Currency,
	}
}

func (s steps) searchFlights(ctx context.Context, st *workflow.State[Data]) workflow.Patch[Data] {
	resp, err := s.tools.SearchFlights(ctx, s.searchRequest(st.Data))
	if err != nil {
		return workflow.Fail[Data](err)
	}
	offers := resp.Flights
	if offers == nil {
		offers = []tools.FlightOffer{}
	}
	return workflow.Set(func(d *Data) { d.Offers = offers })
}

func (s steps) researchDestination(ctx context.Context, st *workflow.State[Data]) workflow.Patch[Data] {
	research, err := s.tools.CityResearch(ctx, st.Data.DestinationCode)
	if err != nil {
		return workflow.Fail[Data](err)
	}
	return workflow.Set(func(d *Data) { d.Research = &research })
}

func (s steps) persistResults(ctx context.Context, st *workflow.State[Data]) workflow.Patch[Data] {
	d := st.Data
	params, err := json.Marshal(s.searchRequest(d))
	if err != nil {
		return workflow.Fail[Data](fmt.Errorf("trip: encode search params: %w", err))
	}

	searchID, err := s.tools.SaveSearch(ctx, tools.SaveSearchRequest{
		TripID:    d.TripID,
		Provider:  tools.FlightTool,
		Params:    params,
		QueryHash: fmt.Sprintf("%s:%s:%s", d.OriginCode, d.DestinationCode, d.Request.Date),
	})
	if err != nil {
		return workflow.Fail[Data](err)
	}
	if err := s.tools.SaveOffers(ctx, tools.SaveOffersRequest{SearchID: searchID, Offers: d.Offers}); err != nil {
		return workflow.Fail[Data](err)
	}
	return workflow.Set(func(d *Data) { d.SearchID = searchID })
}

// NewGraph builds the flight search graph:
//
//	resolve_locations -> save_trip_draft -> {search_flights, research_destination} -> persist_results
//
// Every edge continues only while no error is recorded.
func NewGraph(t Tools, opts ...workflow.Option) (*workflow.Graph[Data], error) {
	s := steps{tools: t}
	return workflow.NewBuilder[Data]("flight_search").
		Step(StepResolveLocations, s.resolveLocations).
		Step(StepSaveTripDraft, s.saveTripDraft).
		Step(StepSearchFlights, s.searchFlights).
		Step(StepResearchDestination, s.researchDestination).
		Step(StepPersistResults, s.persistResults).
		Entry(StepResolveLocations).
		Edges(
			workflow.IfNoError(StepResolveLocations, StepSaveTripDraft),
			workflow.FanOut(StepSaveTripDraft, StepSearchFlights, StepResearchDestination),
			workflow.Join([]string{StepSearchFlights, StepResearchDestination}, StepPersistResults),
			workflow.IfNoError(StepPersistResults, workflow.End),
		).
		Build(opts...)
}

package trip

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jonwraymond/toolgate/tools"
)

// fakeTools is an in-memory Tools.
type fakeTools struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error

	searchBlock chan struct{}

	savedTrip   tools.SaveTripRequest
	savedSearch tools.SaveSearchRequest
	savedOffers tools.SaveOffersRequest
}

var airports = map[string]tools.AirportCandidate{
	"paris":    {Code: "CDG", City: "Paris", Country: "FR"},
	"new york": {Code: "JFK", City: "New York", Country: "US"},
}

func newFakeTools() *fakeTools {
	return &fakeTools{errs: map[string]error{}}
}

func (f *fakeTools) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeTools) called(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.calls, op)
}

func (f *fakeTools) ResolveLocation(ctx context.Context, query string) ([]tools.AirportCandidate, error) {
	if err := f.record("resolve_location"); err != nil {
		return nil, err
	}
	if a, ok := airports[query]; ok {
		return []tools.AirportCandidate{a}, nil
	}
	return nil, nil
}

func (f *fakeTools) SearchFlights(ctx context.Context, req tools.SearchFlightsRequest) (tools.SearchFlightsResponse, error) {
	if err := f.record("search_flights"); err != nil {
		return tools.SearchFlightsResponse{}, err
	}
	if f.searchBlock != nil {
		select {
		case <-f.searchBlock:
		case <-ctx.Done():
			return tools.SearchFlightsResponse{}, ctx.Err()
		}
	}
	var offers []tools.FlightOffer
	for i := range req.MaxResults {
		offers = append(offers, tools.FlightOffer{
			OfferID:    fmt.Sprintf("mock_%d", i),
			Airline:    "AI",
			PriceTotal: decimal.NewFromInt(250),
			Currency:   req.Currency,
			Legs:       req.Legs,
			Source:     "mock",
		})
	}
	return tools.SearchFlightsResponse{Flights: offers, Count: len(offers)}, nil
}

func (f *fakeTools) CityResearch(ctx context.Context, code string) (tools.CityResearch, error) {
	if err := f.record("city_research"); err != nil {
		return tools.CityResearch{}, err
	}
	time.Sleep(5 * time.Millisecond)
	return tools.CityResearch{Code: code, City: "New York", Summary: "big"}, nil
}

func (f *fakeTools) SaveTrip(ctx context.Context, req tools.SaveTripRequest) (string, error) {
	if err := f.record("save_trip"); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.savedTrip = req
	f.mu.Unlock()
	return "trip-1", nil
}

func (f *fakeTools) SaveSearch(ctx context.Context, req tools.SaveSearchRequest) (string, error) {
	if err := f.record("save_search"); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.savedSearch = req
	f.mu.Unlock()
	return "search-1", nil
}

func (f *fakeTools) SaveOffers(ctx context.Context, req tools.SaveOffersRequest) error {
	if err := f.record("save_offers"); err != nil {
		return err
	}
	f.mu.Lock()
	f.savedOffers = req
	f.mu.Unlock()
	return nil
}

package tools

import "context"

// Tools exposes the flight and db tool operations as typed calls.
type Tools struct {
	client  *Client
	catalog Catalog
}

// New creates Tools over client.
func New(client *Client, catalog Catalog) *Tools {
	return &Tools{client: client, catalog: catalog}
}

// Client returns the underlying client.
func (t *Tools) Client() *Client { return t.client }

func (t *Tools) call(ctx context.Context, dep string, payload, out any) error {
	endpoint, err := t.catalog.Endpoint(dep)
	if err != nil {
		return err
	}
	return t.client.Call(ctx, Request{
		Dependency: dep,
		Endpoint:   endpoint,
		Payload:    payload,
		Timeout:    t.catalog.Timeout(dep),
	}, out)
}

// ResolveLocation returns airport candidates for query, best match first.
func (t *Tools) ResolveLocation(ctx context.Context, query string) ([]AirportCandidate, error) {
	var resp ResolveLocationResponse
	if err := t.call(ctx, DepResolveLocation, ResolveLocationRequest{Query: query}, &resp); err != nil {
		return nil, err
	}
	return resp.Candidates, nil
}

// SearchFlights returns offers for req.
func (t *Tools) SearchFlights(ctx context.Context, req SearchFlightsRequest) (SearchFlightsResponse, error) {
	var resp SearchFlightsResponse
	err := t.call(ctx, DepSearchFlights, req, &resp)
	return resp, err
}

// CityResearch returns destination facts for an airport code.
func (t *Tools) CityResearch(ctx context.Context, code string) (CityResearch, error) {
	var resp CityResearch
	err := t.call(ctx, DepCityResearch, CityResearchRequest{Code: code}, &resp)
	return resp, err
}

// SaveTrip stores a trip and returns its ID.
func (t *Tools) SaveTrip(ctx context.Context, req SaveTripRequest) (string, error) {
	var resp SaveTripResponse
	if err := t.call(ctx, DepSaveTrip, req, &resp); err != nil {
		return "", err
	}
	return resp.TripID, nil
}

// SaveSearch stores search parameters and returns the search ID.
func (t *Tools) SaveSearch(ctx context.Context, req SaveSearchRequest) (string, error) {
	var resp SaveSearchResponse
	if err := t.call(ctx, DepSaveSearch, req, &resp); err != nil {
		return "", err
	}
	return resp.SearchID, nil
}

// SaveOffers stores the offers of a search.
func (t *Tools) SaveOffers(ctx context.Context, req SaveOffersRequest) error {
	return t.call(ctx, DepSaveOffers, req, nil)
}

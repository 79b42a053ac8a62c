package trip

import "github.com/jonwraymond/toolgate/tools"

// Data is the workflow state of one flight search. Each step writes its own
// slots.
type Data struct {
	Request FlightSearchRequest

	// resolve_locations
	OriginCode      string
	DestinationCode string

	// save_trip_draft
	TripID string

	// search_flights
	Offers []tools.FlightOffer

	// research_destination
	Research *tools.CityResearch

	// persist_results
	SearchID string
}

func (d Data) response(traceID string) FlightSearchResponse {
	return FlightSearchResponse{
		TraceID:     traceID,
		TripID:      d.TripID,
		SearchID:    d.SearchID,
		Origin:      d.OriginCode,
		Destination: d.DestinationCode,
		Results:     d.Offers,
		Research:    d.Research,
	}
}

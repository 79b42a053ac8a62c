package flighttool

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jonwraymond/toolgate/tools"
)

var airlines = [...]string{"AI", "EK", "BA", "LH"}

var (
	basePrice    = decimal.NewFromInt(250)
	perExtraLeg  = decimal.NewFromInt(50)
	perRankPrice = decimal.RequireFromString("23.50")
)

// MockOffers returns deterministic offers for req: the i-th offer costs
// 250 + 50 per extra leg + 23.50*i.
func MockOffers(req tools.SearchFlightsRequest) []tools.FlightOffer {
	base := basePrice.Add(perExtraLeg.Mul(decimal.NewFromInt(int64(len(req.Legs) - 1))))
	offers := make([]tools.FlightOffer, 0, req.MaxResults)
	for i := range req.MaxResults {
		offers = append(offers, tools.FlightOffer{
			OfferID:         fmt.Sprintf("mock_%d", i),
			Airline:         airlines[i%len(airlines)],
			PriceTotal:      base.Add(perRankPrice.Mul(decimal.NewFromInt(int64(i)))),
			Currency:        req.Currency,
			DurationMinutes: 420 + i*15,
			Stops:           min(req.MaxStops, i%3),
			Legs:            req.Legs,
			Source:          "mock",
		})
	}
	return offers
}

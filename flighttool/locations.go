package flighttool

import (
	"strings"
	"unicode"

	"github.com/jonwraymond/toolgate/tools"
)

var cities = map[string][]tools.AirportCandidate{
	"paris": {
		{Code: "CDG", City: "Paris", Country: "FR", Name: "Charles de Gaulle"},
		{Code: "ORY", City: "Paris", Country: "FR", Name: "Orly"},
	},
	"london": {
		{Code: "LHR", City: "London", Country: "GB", Name: "Heathrow"},
		{Code: "LGW", City: "London", Country: "GB", Name: "Gatwick"},
	},
	"new york": {
		{Code: "JFK", City: "New York", Country: "US", Name: "John F. Kennedy"},
		{Code: "EWR", City: "Newark", Country: "US", Name: "Newark Liberty"},
		{Code: "LGA", City: "New York", Country: "US", Name: "LaGuardia"},
	},
	"hyderabad": {
		{Code: "HYD", City: "Hyderabad", Country: "IN", Name: "RGIA"},
	},
	"dubai": {
		{Code: "DXB", City: "Dubai", Country: "AE", Name: "Dubai International"},
	},
}

// Resolve returns airport candidates for a city name or IATA code, best
// match first. An unknown three letter code resolves to itself.
func Resolve(query string) []tools.AirportCandidate {
	q := strings.ToLower(strings.TrimSpace(query))
	if c, ok := cities[q]; ok {
		return append([]tools.AirportCandidate(nil), c...)
	}
	if len(q) == 3 && isAlpha(q) {
		code := strings.ToUpper(q)
		return []tools.AirportCandidate{{Code: code, City: code}}
	}
	return []tools.AirportCandidate{}
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

package flighttool

import "github.com/jonwraymond/toolgate/tools"

var research = map[string]tools.CityResearch{
	"CDG": {City: "Paris", Country: "FR", Summary: "Capital of France on the Seine.",
		Highlights: []string{"Louvre", "Eiffel Tower", "Montmartre"}, BestMonths: []string{"Apr", "May", "Sep", "Oct"}},
	"LHR": {City: "London", Country: "GB", Summary: "Capital of the United Kingdom on the Thames.",
		Highlights: []string{"British Museum", "Tower of London", "West End"}, BestMonths: []string{"May", "Jun", "Sep"}},
	"JFK": {City: "New York", Country: "US", Summary: "Largest city of the United States.",
		Highlights: []string{"Central Park", "Metropolitan Museum", "Brooklyn Bridge"}, BestMonths: []string{"Apr", "May", "Sep", "Oct"}},
	"HYD": {City: "Hyderabad", Country: "IN", Summary: "Capital of Telangana on the Deccan plateau.",
		Highlights: []string{"Charminar", "Golconda Fort", "Hussain Sagar"}, BestMonths: []string{"Nov", "Dec", "Jan", "Feb"}},
	"DXB": {City: "Dubai", Country: "AE", Summary: "Largest city of the United Arab Emirates.",
		Highlights: []string{"Burj Khalifa", "Dubai Creek", "Old Souks"}, BestMonths: []string{"Nov", "Dec", "Jan", "Feb", "Mar"}},
}

// aliases map secondary airports to the city entry.
var aliases = map[string]string{
	"ORY": "CDG",
	"LGW": "LHR",
	"EWR": "JFK",
	"LGA": "JFK",
}

// Research returns destination facts for an airport code. Unknown codes get
// a minimal entry.
func Research(code string) tools.CityResearch {
	key := code
	if a, ok := aliases[code]; ok {
		key = a
	}
	r, ok := research[key]
	if !ok {
		return tools.CityResearch{Code: code, City: code, Summary: "No research available.", Highlights: []string{}}
	}
	r.Code = code
	r.Highlights = append([]string(nil), r.Highlights...)
	r.BestMonths = append([]string(nil), r.BestMonths...)
	return r
}

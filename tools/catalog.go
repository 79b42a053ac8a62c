package tools

import (
	"fmt"
	"strings"
	"time"
)

// Tool service namespaces.
const (
	FlightTool = "flight_tool"
	DBTool     = "db_tool"
)

// Dependency names. Each one has its own circuit breaker.
const (
	DepResolveLocation = FlightTool + ".resolve_location"
	DepSearchFlights   = FlightTool + ".search_flights"
	DepCityResearch    = FlightTool + ".city_research"
	DepSaveTrip        = DBTool + ".save_trip"
	DepSaveSearch      = DBTool + ".save_search"
	DepSaveOffers      = DBTool + ".save_offers"
	DepLogToolCall     = DBTool + ".log_tool_call"
)

// Dependencies lists the dependencies the orchestrator calls through the
// invoker.
var Dependencies = []string{
	DepResolveLocation,
	DepSearchFlights,
	DepCityResearch,
	DepSaveTrip,
	DepSaveSearch,
	DepSaveOffers,
}

// SplitDependency splits "namespace.operation".
func SplitDependency(dep string) (namespace, operation string) {
	namespace, operation, ok := strings.Cut(dep, ".")
	if !ok {
		return "", dep
	}
	return namespace, operation
}

// Catalog maps dependency names to endpoints and call timeouts.
type Catalog struct {
	// BaseURLs maps a namespace to its service base URL.
	BaseURLs map[string]string

	// Timeouts overrides DefaultTimeout per dependency.
	Timeouts map[string]time.Duration

	// DefaultTimeout applies to dependencies without an override.
	// Default: 5 seconds
	DefaultTimeout time.Duration
}

// NewCatalog returns the catalog for the flight and db tools.
// resolve_location uses a 2 second timeout.
func NewCatalog(flightToolURL, dbToolURL string, defaultTimeout time.Duration) Catalog {
	return Catalog{
		BaseURLs: map[string]string{
			FlightTool: flightToolURL,
			DBTool:     dbToolURL,
		},
		Timeouts: map[string]time.Duration{
			DepResolveLocation: 2 * time.Second,
		},
		DefaultTimeout: defaultTimeout,
	}
}

// Endpoint returns "<base>/tools/<operation>" for dep.
func (c Catalog) Endpoint(dep string) (string, error) {
	ns, op := SplitDependency(dep)
	base, ok := c.BaseURLs[ns]
	if !ok || base == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownDependency, dep)
	}
	return strings.TrimRight(base, "/") + "/tools/" + op, nil
}

// Timeout returns the call timeout for dep.
func (c Catalog) Timeout(dep string) time.Duration {
	if d, ok := c.Timeouts[dep]; ok && d > 0 {
		return d
	}
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return 5 * time.Second
}

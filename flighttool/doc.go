// Package flighttool implements the flight tool service: location
// resolution from a static city table, deterministic mock flight search and
// destination research.
package flighttool

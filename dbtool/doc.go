// Package dbtool implements the db tool service. It persists trips,
// searches, offers and the tool call audit trail through records, and serves
// trips and traces back for inspection.
package dbtool

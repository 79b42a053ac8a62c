// Package records stores the trips, searches, offers and tool call audit
// records served by the db tool. SQLite (modernc.org/sqlite) is the default
// backend; PostgreSQL is reached through pgx's database/sql driver.
package records

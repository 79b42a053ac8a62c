package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/jonwraymond/toolgate/tools"
)

// Dialect selects SQL syntax differences.
type Dialect int

const (
	// SQLite uses ? placeholders and AUTOINCREMENT keys.
	SQLite Dialect = iota
	// Postgres uses $n placeholders and BIGSERIAL keys.
	Postgres
)

// SQLStore persists trips, searches, offers and tool calls in a SQL
// database.
//
// The caller provides an *sql.DB for the dialect's driver ("sqlite" from
// modernc.org/sqlite or "pgx" from github.com/jackc/pgx/v5/stdlib), or uses
// Open.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open opens driver ("sqlite" or "postgres") at dsn and migrates the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var (
		name    string
		dialect Dialect
	)
	switch driver {
	case "sqlite":
		name, dialect = "sqlite", SQLite
	case "postgres":
		name, dialect = "pgx", Postgres
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("records: open %s: %w", driver, err)
	}
	if dialect == SQLite {
		// one writer; also keeps a :memory: database on a single connection
		db.SetMaxOpenConns(1)
	}
	s, err := New(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New migrates the schema on db and returns a store.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	autoID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == Postgres {
		autoID = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trips (
			trip_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			trip_type TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS searches (
			search_id TEXT PRIMARY KEY,
			trip_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			params_json TEXT NOT NULL,
			query_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS offers (
			offer_row_id ` + autoID + `,
			search_id TEXT NOT NULL,
			offer_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tool_calls (
			call_id ` + autoID + `,
			trace_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			input_json TEXT NOT NULL,
			output_json TEXT NOT NULL,
			latency_ms BIGINT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_searches_trip ON searches (trip_id)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_search ON offers (search_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_calls_trace ON tool_calls (trace_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("records: migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for the dialect.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

func rawJSON(v []byte) json.RawMessage {
	if len(v) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(v)
}

// CreateTrip stores a trip and returns its generated ID.
func (s *SQLStore) CreateTrip(ctx context.Context, sessionID, tripType, status string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO trips (trip_id, session_id, trip_type, status, created_at) VALUES (?, ?, ?, ?, ?)`),
		id, sessionID, tripType, status, s.timestamp())
	if err != nil {
		return "", fmt.Errorf("records: create trip: %w", err)
	}
	return id, nil
}

// CreateSearch stores a search of tripID and returns its generated ID.
func (s *SQLStore) CreateSearch(ctx context.Context, tripID, provider string, params json.RawMessage, queryHash string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO searches (search_id, trip_id, provider, params_json, query_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		id, tripID, provider, string(rawJSON(params)), queryHash, s.timestamp())
	if err != nil {
		return "", fmt.Errorf("records: create search: %w", err)
	}
	return id, nil
}

// AddOffers stores offers of searchID in one transaction.
func (s *SQLStore) AddOffers(ctx context.Context, searchID string, offers []tools.FlightOffer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("records: add offers: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO offers (search_id, offer_json, created_at) VALUES (?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("records: add offers: %w", err)
	}
	defer stmt.Close()

	ts := s.timestamp()
	for _, o := range offers {
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("records: encode offer %s: %w", o.OfferID, err)
		}
		if _, err := stmt.ExecContext(ctx, searchID, string(data), ts); err != nil {
			return fmt.Errorf("records: add offers: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("records: add offers: %w", err)
	}
	return nil
}

// LogToolCall stores an audit record and returns its ID.
func (s *SQLStore) LogToolCall(ctx context.Context, c ToolCall) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO tool_calls (trace_id, tool_name, input_json, output_json, latency_ms, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING call_id`),
		c.TraceID, c.ToolName, string(rawJSON(c.Input)), string(rawJSON(c.Output)), c.LatencyMs, c.Status, s.timestamp(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("records: log tool call: %w", err)
	}
	return id, nil
}

// GetTrip returns the trip with its searches and offers.
func (s *SQLStore) GetTrip(ctx context.Context, tripID string) (TripRecord, error) {
	var (
		rec     TripRecord
		created string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT trip_id, session_id, trip_type, status, created_at FROM trips WHERE trip_id = ?`), tripID,
	).Scan(&rec.Trip.TripID, &rec.Trip.SessionID, &rec.Trip.TripType, &rec.Trip.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return TripRecord{}, fmt.Errorf("%w: trip %s", ErrNotFound, tripID)
	}
	if err != nil {
		return TripRecord{}, fmt.Errorf("records: get trip: %w", err)
	}
	rec.Trip.CreatedAt = parseTime(created)

	if rec.Searches, err = s.searches(ctx, tripID); err != nil {
		return TripRecord{}, err
	}
	if rec.Offers, err = s.offers(ctx, tripID); err != nil {
		return TripRecord{}, err
	}
	return rec, nil
}

func (s *SQLStore) searches(ctx context.Context, tripID string) ([]Search, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT search_id, trip_id, provider, params_json, query_hash, created_at
		FROM searches WHERE trip_id = ? ORDER BY created_at, search_id`), tripID)
	if err != nil {
		return nil, fmt.Errorf("records: list searches: %w", err)
	}
	defer rows.Close()

	out := []Search{}
	for rows.Next() {
		var (
			sr      Search
			params  string
			created string
		)
		if err := rows.Scan(&sr.SearchID, &sr.TripID, &sr.Provider, &params, &sr.QueryHash, &created); err != nil {
			return nil, fmt.Errorf("records: scan search: %w", err)
		}
		sr.Params = rawJSON([]byte(params))
		sr.CreatedAt = parseTime(created)
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (s *SQLStore) offers(ctx context.Context, tripID string) ([]tools.FlightOffer, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT o.offer_json FROM offers o
		JOIN searches s ON s.search_id = o.search_id
		WHERE s.trip_id = ? ORDER BY o.offer_row_id`), tripID)
	if err != nil {
		return nil, fmt.Errorf("records: list offers: %w", err)
	}
	defer rows.Close()

	out := []tools.FlightOffer{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("records: scan offer: %w", err)
		}
		var o tools.FlightOffer
		if err := json.Unmarshal([]byte(data), &o); err != nil {
			return nil, fmt.Errorf("records: decode offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetTrace returns the tool calls of traceID in call order. An unknown
// trace yields an empty slice.
func (s *SQLStore) GetTrace(ctx context.Context, traceID string) ([]ToolCall, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT call_id, trace_id, tool_name, input_json, output_json, latency_ms, status, created_at
		FROM tool_calls WHERE trace_id = ? ORDER BY call_id`), traceID)
	if err != nil {
		return nil, fmt.Errorf("records: get trace: %w", err)
	}
	defer rows.Close()

	out := []ToolCall{}
	for rows.Next() {
		var (
			c             ToolCall
			input, output string
			created       string
		)
		if err := rows.Scan(&c.CallID, &c.TraceID, &c.ToolName, &input, &output, &c.LatencyMs, &c.Status, &created); err != nil {
			return nil, fmt.Errorf("records: scan tool call: %w", err)
		}
		c.Input = rawJSON([]byte(input))
		c.Output = rawJSON([]byte(output))
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

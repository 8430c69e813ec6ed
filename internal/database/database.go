package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnavailable marks driver and connectivity failures so the API layer
// can answer 503 instead of a generic 500.
var ErrUnavailable = errors.New("database unavailable")

// dbErr tags a driver failure with ErrUnavailable. Sentinels pass through
// so not-found detection keeps working.
func dbErr(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Database wraps the platform's Postgres store.
type Database struct {
	db *sql.DB
}

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
// This is used throughout the database package for parameterized queries.
func rebind(query string) string {
	n := 1
	out := strings.Builder{}
	for _, ch := range query {
		if ch == '?' {
			out.WriteString(fmt.Sprintf("$%d", n))
			n++
		} else {
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// New creates a Postgres database connection and initializes the schema.
func New(dsn string, maxOpen, maxIdle int) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	d := &Database{db: db}

	if err := d.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping verifies the connection is alive.
func (d *Database) Ping() error {
	return d.db.Ping()
}

// Stats exposes connection pool statistics.
func (d *Database) Stats() sql.DBStats {
	return d.db.Stats()
}

func (d *Database) initSchema() error {
	schema := `
	-- Customer working sessions
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		context_json TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_accessed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP NOT NULL
	);

	-- ICP analyses with per-criterion breakdown
	CREATE TABLE IF NOT EXISTS icp_analyses (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		input_json TEXT NOT NULL,
		score REAL NOT NULL,
		tier INTEGER NOT NULL,
		breakdown_json TEXT,
		summary TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Prospect research enrichment
	CREATE TABLE IF NOT EXISTS research_records (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		company_name TEXT NOT NULL,
		website TEXT,
		product_description TEXT,
		value_prop TEXT,
		target_customer TEXT,
		linkedin_background TEXT,
		notes TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Cost-of-inaction calculator runs
	CREATE TABLE IF NOT EXISTS cost_scenarios (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		input_json TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Agent executions (dispatch records)
	CREATE TABLE IF NOT EXISTS agent_executions (
		id TEXT PRIMARY KEY,
		agent TEXT NOT NULL,
		operation TEXT NOT NULL,
		customer_id TEXT,
		status TEXT NOT NULL DEFAULT 'running',
		params_json TEXT,
		result_json TEXT,
		error TEXT,
		started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMP,
		duration_ms BIGINT NOT NULL DEFAULT 0
	);

	-- Performance metrics per customer
	CREATE TABLE IF NOT EXISTS performance_metrics (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		name TEXT NOT NULL,
		value REAL NOT NULL,
		recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Optimization recommendations emitted by agents
	CREATE TABLE IF NOT EXISTS optimization_events (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		source TEXT NOT NULL,
		recommendation TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Tiered resource library
	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		tier INTEGER NOT NULL DEFAULT 1,
		url TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Request logs for analytics
	CREATE TABLE IF NOT EXISTS request_logs (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		user_id TEXT,
		endpoint TEXT,
		method TEXT,
		status_code INTEGER,
		latency_ms INTEGER,
		error_message TEXT,
		ip_address TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_customer_id ON sessions(customer_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	CREATE INDEX IF NOT EXISTS idx_icp_analyses_customer_id ON icp_analyses(customer_id);
	CREATE INDEX IF NOT EXISTS idx_research_customer_id ON research_records(customer_id);
	CREATE INDEX IF NOT EXISTS idx_cost_scenarios_customer_id ON cost_scenarios(customer_id);
	CREATE INDEX IF NOT EXISTS idx_executions_agent ON agent_executions(agent);
	CREATE INDEX IF NOT EXISTS idx_executions_customer_id ON agent_executions(customer_id);
	CREATE INDEX IF NOT EXISTS idx_executions_status ON agent_executions(status);
	CREATE INDEX IF NOT EXISTS idx_metrics_customer_name ON performance_metrics(customer_id, name);
	CREATE INDEX IF NOT EXISTS idx_metrics_recorded_at ON performance_metrics(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_optimizations_customer_id ON optimization_events(customer_id);
	CREATE INDEX IF NOT EXISTS idx_optimizations_status ON optimization_events(status);
	CREATE INDEX IF NOT EXISTS idx_resources_tier ON resources(tier);
	CREATE INDEX IF NOT EXISTS idx_request_logs_timestamp ON request_logs(timestamp);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with claimlens-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// Path returns the filesystem path of the database.
func (d *DB) Path() string { return d.path }

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS claims (
    id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    claim_number TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('open','in_review','approved','denied','closed')),
    claim_type TEXT NOT NULL CHECK(claim_type IN ('auto','property','liability','workers_comp','medical')),
    region TEXT NOT NULL DEFAULT '',
    adjuster TEXT NOT NULL DEFAULT '',
    amount_paid REAL NOT NULL DEFAULT 0,
    opened_at DATE NOT NULL,
    closed_at DATE,
    sla_breached INTEGER NOT NULL DEFAULT 0,
    reopened INTEGER NOT NULL DEFAULT 0,
    UNIQUE(client_id, claim_number)
);

CREATE INDEX IF NOT EXISTS idx_claims_client ON claims(client_id);
CREATE INDEX IF NOT EXISTS idx_claims_opened ON claims(client_id, opened_at);
CREATE INDEX IF NOT EXISTS idx_claims_adjuster ON claims(client_id, adjuster);
CREATE INDEX IF NOT EXISTS idx_claims_region ON claims(client_id, region);

CREATE TABLE IF NOT EXISTS metric_catalog (
    slug TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'general',
    unit TEXT NOT NULL CHECK(unit IN ('count','percentage','dollars','days','hours','milliseconds','tokens')),
    default_chart_type TEXT NOT NULL DEFAULT 'bar',
    allowed_dimensions TEXT NOT NULL DEFAULT '[]',
    is_active INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS query_cache (
    cache_key TEXT PRIMARY KEY,
    metric_slug TEXT NOT NULL,
    client_id TEXT NOT NULL,
    result_data TEXT NOT NULL,
    hit_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_cache_expires ON query_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_query_cache_metric ON query_cache(metric_slug, client_id);

CREATE TABLE IF NOT EXISTS anomaly_events (
    id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    metric_slug TEXT NOT NULL,
    direction TEXT NOT NULL CHECK(direction IN ('up','down')),
    z_score REAL NOT NULL,
    current_value REAL NOT NULL,
    baseline_mean REAL NOT NULL,
    baseline_std_dev REAL NOT NULL,
    severity TEXT NOT NULL CHECK(severity IN ('info','warning','critical')),
    detected_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_anomaly_client ON anomaly_events(client_id, detected_at);
CREATE INDEX IF NOT EXISTS idx_anomaly_metric ON anomaly_events(metric_slug, client_id);

CREATE TABLE IF NOT EXISTS conversation_threads (
    id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    context_json TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS conversation_turns (
    id TEXT PRIMARY KEY,
    thread_id TEXT NOT NULL REFERENCES conversation_threads(id) ON DELETE CASCADE,
    turn_index INTEGER NOT NULL,
    intent_type TEXT NOT NULL,
    metric_slug TEXT NOT NULL DEFAULT '',
    user_message TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    UNIQUE(thread_id, turn_index)
);

CREATE INDEX IF NOT EXISTS idx_turns_thread ON conversation_turns(thread_id, turn_index);
`

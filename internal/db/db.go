// Package db owns the SQLite connection and schema for claimdeck.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with claimdeck-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
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
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
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

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
// Run-scoped tables hold the immutable snapshot of a single assessment
// run; re-ingesting a run replaces its rows wholesale in one transaction.
const schema = `
CREATE TABLE IF NOT EXISTS claims (
    id TEXT PRIMARY KEY,
    claim_number TEXT NOT NULL UNIQUE,
    policy_number TEXT NOT NULL DEFAULT '',
    claimant TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'open' CHECK(status IN ('open','in_review','decided','closed')),
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_claims_number ON claims(claim_number);
CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);

CREATE TABLE IF NOT EXISTS claim_runs (
    id TEXT PRIMARY KEY,
    claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
    label TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'completed' CHECK(status IN ('running','completed','error')),
    ingested_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_claim ON claim_runs(claim_id);

CREATE TABLE IF NOT EXISTS run_facts (
    run_id TEXT NOT NULL REFERENCES claim_runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    value TEXT NOT NULL DEFAULT 'null',
    confidence REAL NOT NULL DEFAULT 0,
    selected_from TEXT,
    PRIMARY KEY(run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_run_facts_name ON run_facts(run_id, name);

CREATE TABLE IF NOT EXISTS run_checks (
    run_id TEXT NOT NULL REFERENCES claim_runs(id) ON DELETE CASCADE,
    check_number INTEGER NOT NULL,
    check_name TEXT NOT NULL,
    result TEXT NOT NULL CHECK(result IN ('PASS','FAIL','INCONCLUSIVE')),
    details TEXT NOT NULL DEFAULT '',
    evidence_refs TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY(run_id, check_number)
);

CREATE TABLE IF NOT EXISTS run_assumptions (
    run_id TEXT NOT NULL REFERENCES claim_runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    check_number INTEGER NOT NULL DEFAULT 0,
    field TEXT NOT NULL,
    assumed_value TEXT NOT NULL DEFAULT '',
    impact TEXT NOT NULL CHECK(impact IN ('high','medium','low')),
    reason TEXT NOT NULL DEFAULT '',
    PRIMARY KEY(run_id, position)
);

CREATE TABLE IF NOT EXISTS run_conflicts (
    run_id TEXT NOT NULL REFERENCES claim_runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    fact_name TEXT NOT NULL,
    conflict_values TEXT NOT NULL DEFAULT '[]',
    sources TEXT NOT NULL DEFAULT '[]',
    selected_value TEXT NOT NULL DEFAULT '',
    selected_confidence REAL NOT NULL DEFAULT 0,
    selection_reason TEXT NOT NULL DEFAULT '',
    PRIMARY KEY(run_id, position)
);

CREATE TABLE IF NOT EXISTS run_service_entries (
    run_id TEXT NOT NULL REFERENCES claim_runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    date TEXT NOT NULL DEFAULT '',
    mileage TEXT NOT NULL DEFAULT '',
    service_type TEXT NOT NULL DEFAULT '',
    provider TEXT NOT NULL DEFAULT '',
    work_performed TEXT NOT NULL DEFAULT '',
    PRIMARY KEY(run_id, position)
);

CREATE TABLE IF NOT EXISTS run_documents (
    run_id TEXT NOT NULL REFERENCES claim_runs(id) ON DELETE CASCADE,
    doc_id TEXT NOT NULL,
    doc_type TEXT NOT NULL DEFAULT '',
    filename TEXT NOT NULL DEFAULT '',
    quality_status TEXT NOT NULL DEFAULT '',
    PRIMARY KEY(run_id, doc_id)
);

CREATE TABLE IF NOT EXISTS review_notes (
    id TEXT PRIMARY KEY,
    claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
    run_id TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_review_notes_claim ON review_notes(claim_id, created_at);

CREATE TABLE IF NOT EXISTS audit_entries (
    id TEXT PRIMARY KEY,
    timestamp DATETIME NOT NULL DEFAULT (datetime('now')),
    actor_type TEXT NOT NULL DEFAULT 'system' CHECK(actor_type IN ('user','system')),
    actor_id TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    claim_id TEXT NOT NULL DEFAULT '',
    run_id TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_claim ON audit_entries(claim_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_entries(action, timestamp);
`

// Package sqlite implements the off-chain record store on SQLite.
// It persists action records and claimant address mappings; only the
// fields the chain-sync coordinator and review service read and write.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// DB wraps the SQLite connection for the record store.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the record store database under dir and runs
// migrations. The database file is dir/records.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	path := filepath.Join(dir, "records.db")

	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent reconciles.
	conn.SetMaxOpenConns(1)

	db := &DB{db: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Action records. chain_id is NULL until the action has been
		// logged on the ledger; the guarded update in SetChainLog keeps
		// it immutable once set.
		`CREATE TABLE IF NOT EXISTS actions (
			id                   TEXT PRIMARY KEY,
			claimant_id          TEXT NOT NULL,
			title                TEXT NOT NULL,
			description          TEXT NOT NULL DEFAULT '',
			category             TEXT NOT NULL DEFAULT 'general',
			location             TEXT NOT NULL DEFAULT '',
			quantity             REAL NOT NULL DEFAULT 0,
			unit                 TEXT NOT NULL DEFAULT '',
			status               TEXT NOT NULL DEFAULT 'PENDING',
			claimed_credits      INTEGER NOT NULL DEFAULT 0,
			awarded_credits      INTEGER NOT NULL DEFAULT 0,
			comments             TEXT NOT NULL DEFAULT '',
			chain_id             INTEGER,
			chain_tx_log_hash    TEXT,
			chain_tx_log_block   INTEGER,
			chain_tx_verify_hash  TEXT,
			chain_tx_verify_block INTEGER,
			created_at           TEXT NOT NULL DEFAULT (datetime('now')),
			decided_at           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_status ON actions(status)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_actions_chain_id ON actions(chain_id) WHERE chain_id IS NOT NULL`,

		// Claimant on-chain address registry.
		`CREATE TABLE IF NOT EXISTS claimant_addresses (
			claimant_id TEXT PRIMARY KEY,
			address     TEXT NOT NULL,
			updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
}

// Package db provides SQLite storage for sync state, difference transaction records and exchange rates.
package db

import "fmt"

// SchemaVersion is stored in sync_metadata under the schema_version key.
const SchemaVersion = "1"

// Schema defines the SQL statements to create database tables.
const Schema = `
-- One row per synced budget; holds the incremental sync cursor
CREATE TABLE IF NOT EXISTS budgets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ynab_budget_id TEXT NOT NULL UNIQUE,
    start_date TEXT NOT NULL,          -- YYYY-MM-DD
    server_knowledge INTEGER,          -- NULL until the first committed run
    last_run_date TEXT,                -- YYYY-MM-DD
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Maps a foreign transaction to the difference transaction written for it
CREATE TABLE IF NOT EXISTS difference_transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    budget_id INTEGER NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
    foreign_transaction_id TEXT NOT NULL,
    difference_transaction_id TEXT NOT NULL,
    amount_milliunits INTEGER NOT NULL,
    currency_code TEXT NOT NULL,
    account_class TEXT NOT NULL,       -- 'D', 'C' or 'T'
    transfer_currency_code TEXT,
    transfer_account_class TEXT,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(budget_id, foreign_transaction_id),
    UNIQUE(budget_id, difference_transaction_id)
);

-- Historical rates, 1 from_currency = rate to_currency
CREATE TABLE IF NOT EXISTS exchange_rates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL,                -- YYYY-MM-DD
    from_currency_code TEXT NOT NULL,
    to_currency_code TEXT NOT NULL,
    rate_scaled INTEGER NOT NULL,      -- rate * 10^6
    fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(date, from_currency_code, to_currency_code)
);

CREATE INDEX IF NOT EXISTS idx_exchange_rates_date
    ON exchange_rates(date, to_currency_code);

-- Committed sync runs
CREATE TABLE IF NOT EXISTS sync_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL UNIQUE,
    budget_id INTEGER NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    creates INTEGER NOT NULL,
    updates INTEGER NOT NULL,
    deletes INTEGER NOT NULL,
    adjustments INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_budget
    ON sync_runs(budget_id, started_at);

-- Sync metadata table
-- Stores key-value metadata about the database
CREATE TABLE IF NOT EXISTS sync_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist and records the schema version.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}

	store := NewStore(conn)
	version, err := store.GetMetadata("schema_version")
	if err != nil {
		return err
	}
	switch version {
	case "":
		return store.SetMetadata("schema_version", SchemaVersion)
	case SchemaVersion:
		return nil
	default:
		return fmt.Errorf("unsupported schema version %s (expected %s)", version, SchemaVersion)
	}
}

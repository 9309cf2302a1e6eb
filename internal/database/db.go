package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Migrate creates the schema if it does not exist yet
func (db *DB) Migrate() error {
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// schema holds the DDL for the investment ledger. Derived fields live on the
// aggregate row so that ledger and valuation are always written together.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS investments (
		id                    TEXT PRIMARY KEY,
		user_id               TEXT NOT NULL,
		name                  TEXT NOT NULL,
		kind                  TEXT NOT NULL,
		symbol                TEXT NOT NULL DEFAULT '',
		category              TEXT NOT NULL DEFAULT '',
		status                TEXT NOT NULL DEFAULT 'holding',
		notes                 TEXT NOT NULL DEFAULT '',
		start_date            TEXT NOT NULL,
		current_price         REAL NOT NULL DEFAULT 0,
		total_quantity        REAL NOT NULL DEFAULT 0,
		net_contribution      REAL NOT NULL DEFAULT 0,
		current_value         REAL NOT NULL DEFAULT 0,
		interest_rate         REAL NOT NULL DEFAULT 0,
		interest_payment_type TEXT NOT NULL DEFAULT '',
		interest_calc_type    TEXT NOT NULL DEFAULT '',
		end_date              TEXT,
		last_interest_accrual TEXT,
		created_at            TEXT NOT NULL,
		updated_at            TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_investments_user_kind ON investments(user_id, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_investments_symbol ON investments(symbol)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id            TEXT PRIMARY KEY,
		investment_id TEXT NOT NULL REFERENCES investments(id) ON DELETE CASCADE,
		kind          TEXT NOT NULL,
		price         REAL NOT NULL DEFAULT 0,
		quantity      REAL NOT NULL DEFAULT 0,
		amount        REAL NOT NULL DEFAULT 0,
		fee           REAL NOT NULL DEFAULT 0,
		occurred_at   TEXT NOT NULL,
		notes         TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		seq           INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_investment ON transactions(investment_id, seq)`,
}

// Package database opens the local SQLite store backing the exchange-rate
// cache.
package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS ecb_rates (
	currency   TEXT NOT NULL,
	date       TEXT NOT NULL,
	rate       TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	PRIMARY KEY (currency, date)
)`

// Open opens (and creates if needed) the SQLite database at path and
// bootstraps the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, nil
}

// Package db is the sqlite-backed settings store for the mapping engine:
// geometry and strip parameters, the per-key offset and trim tables, and
// snapshots of generated mappings.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite settings database.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the settings database at path and applies
// all pending migrations.
func NewDB(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings db: %w", err)
	}

	// Serialise writers; the API and the MIDI listener share this handle.
	sqldb.SetMaxOpenConns(1)
	if _, err := sqldb.Exec(`PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;`); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	db := &DB{sqldb}
	if err := db.MigrateUp(); err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

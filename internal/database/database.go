// Package database stores the run history of signalstamp in SQLite: one row
// per batch run and one row per processed file.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/Nomadcxx/signalstamp/internal/paths"
)

// HistoryDB is the handle to the history database.
type HistoryDB struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens or creates the database at the default location
func Open() (*HistoryDB, error) {
	path, err := paths.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve history path: %w", err)
	}
	return OpenPath(path)
}

// OpenPath opens or creates the database at a specific path
func OpenPath(path string) (*HistoryDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL lets the history command read while a watch process writes
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return initDB(db, path)
}

// OpenInMemory opens an in-memory database for testing
func OpenInMemory() (*HistoryDB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// every pooled connection would otherwise get its own empty database
	db.SetMaxOpenConns(1)

	return initDB(db, ":memory:")
}

func initDB(db *sql.DB, path string) (*HistoryDB, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	hdb := &HistoryDB{
		db:   db,
		path: path,
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the filesystem path to the database file
func (h *HistoryDB) Path() string {
	return h.path
}

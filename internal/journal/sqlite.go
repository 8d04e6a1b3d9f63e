// Package journal keeps an append-only SQLite log of support case events.
// It is an audit trail for staff and is never read back into bot state.
package journal

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"dungeon-keeper/internal/logging"
)

// Store wraps the database connection
type Store struct {
	DB     *sql.DB
	bootID string
	log    *slog.Logger
}

// Open creates a new Store and initializes the database.
// Every Open gets a fresh boot id because case ids restart with the process.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{
		DB:     db,
		bootID: uuid.NewString(),
		log:    logging.Component("journal"),
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store.log.Info("Case journal opened", "path", dbPath, "boot", store.bootID)
	return store, nil
}

// BootID identifies this process run inside the journal
func (s *Store) BootID() string {
	return s.bootID
}

// migrate creates all necessary tables
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS case_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		boot_id TEXT NOT NULL,
		case_id INTEGER NOT NULL,
		kind TEXT CHECK(kind IN ('opened', 'replied', 'undelivered', 'closed')) NOT NULL,
		actor_id INTEGER NOT NULL,
		body TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_case_events_case
	ON case_events(boot_id, case_id);
	`

	if _, err := s.DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to create case_events table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.DB.Close()
}

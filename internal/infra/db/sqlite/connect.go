package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the sqlite database file. Use ":memory:" for tests.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; keep the pool at one connection so an
	// in-memory database is not silently duplicated per connection.
	db.SetMaxOpenConns(1)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables when they do not exist yet. Migrations
// proper are out of scope.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const threatsTable = `
CREATE TABLE IF NOT EXISTS threats (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  description TEXT,
  source TEXT NOT NULL,
  source_url TEXT NOT NULL UNIQUE,
  published_at DATETIME,
  ai_threat_level INTEGER NOT NULL,
  ai_category TEXT NOT NULL,
  ai_summary TEXT NOT NULL,
  ai_confidence REAL NOT NULL,
  ai_keywords TEXT NOT NULL,
  ai_reason TEXT NOT NULL,
  location TEXT,
  human_threat_level INTEGER,
  human_category TEXT,
  human_notes TEXT,
  reviewed_by TEXT,
  reviewed_at DATETIME,
  requires_review INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);`
	const runsTable = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
  id TEXT PRIMARY KEY,
  started_at DATETIME NOT NULL,
  finished_at DATETIME NOT NULL,
  status TEXT NOT NULL,
  fetched INTEGER NOT NULL,
  new_count INTEGER NOT NULL,
  persisted INTEGER NOT NULL,
  duplicates INTEGER NOT NULL,
  skipped INTEGER NOT NULL,
  purged INTEGER NOT NULL,
  error TEXT,
  artifact_url TEXT
);`
	if _, err := db.ExecContext(ctx, threatsTable); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, runsTable)
	return err
}

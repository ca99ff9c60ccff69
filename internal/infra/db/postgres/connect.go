package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const threatsTable = `
CREATE TABLE IF NOT EXISTS threats (
  id BIGSERIAL PRIMARY KEY,
  title VARCHAR(500) NOT NULL,
  description TEXT,
  source VARCHAR(100) NOT NULL,
  source_url VARCHAR(500) NOT NULL UNIQUE,
  published_at TIMESTAMPTZ,
  ai_threat_level INT NOT NULL,
  ai_category VARCHAR(50) NOT NULL,
  ai_summary TEXT NOT NULL,
  ai_confidence DOUBLE PRECISION NOT NULL,
  ai_keywords JSONB NOT NULL,
  ai_reason TEXT NOT NULL,
  location VARCHAR(200),
  human_threat_level INT,
  human_category VARCHAR(50),
  human_notes TEXT,
  reviewed_by VARCHAR(100),
  reviewed_at TIMESTAMPTZ,
  requires_review BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);`
	const runsTable = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
  id VARCHAR(64) PRIMARY KEY,
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL,
  status VARCHAR(16) NOT NULL,
  fetched INT NOT NULL,
  new_count INT NOT NULL,
  persisted INT NOT NULL,
  duplicates INT NOT NULL,
  skipped INT NOT NULL,
  purged BIGINT NOT NULL,
  error TEXT,
  artifact_url VARCHAR(500)
);`
	if _, err := db.ExecContext(ctx, threatsTable); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, runsTable)
	return err
}

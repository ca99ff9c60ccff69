package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  title VARCHAR(500) NOT NULL,
  description TEXT,
  source VARCHAR(100) NOT NULL,
  source_url VARCHAR(500) NOT NULL,
  published_at DATETIME,
  ai_threat_level INT NOT NULL,
  ai_category VARCHAR(50) NOT NULL,
  ai_summary TEXT NOT NULL,
  ai_confidence DOUBLE NOT NULL,
  ai_keywords JSON NOT NULL,
  ai_reason TEXT NOT NULL,
  location VARCHAR(200),
  human_threat_level INT,
  human_category VARCHAR(50),
  human_notes TEXT,
  reviewed_by VARCHAR(100),
  reviewed_at DATETIME,
  requires_review BOOLEAN NOT NULL DEFAULT FALSE,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  UNIQUE KEY uniq_source_url (source_url)
);`
	const runsTable = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
  id VARCHAR(64) PRIMARY KEY,
  started_at DATETIME NOT NULL,
  finished_at DATETIME NOT NULL,
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

package postgres

import (
	"context"
	"database/sql"

	domain "github.com/shieldhq/threatwatch/internal/domain/runs"
)

type RunRepository struct {
	db *sql.DB
}

var _ domain.Repository = (*RunRepository)(nil)

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO pipeline_runs
(id, started_at, finished_at, status, fetched, new_count, persisted, duplicates, skipped, purged, error, artifact_url)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`
	_, err := r.db.ExecContext(ctx, q,
		run.ID, run.StartedAt, run.FinishedAt, run.Status,
		run.Fetched, run.New, run.Persisted, run.Duplicates, run.Skipped, run.Purged,
		run.Error, run.ArtifactURL,
	)
	return err
}

func (r *RunRepository) Latest(ctx context.Context, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, started_at, finished_at, status, fetched, new_count, persisted, duplicates, skipped, purged, error, artifact_url
FROM pipeline_runs
ORDER BY started_at DESC
LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(
			&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status,
			&run.Fetched, &run.New, &run.Persisted, &run.Duplicates, &run.Skipped, &run.Purged,
			&run.Error, &run.ArtifactURL,
		); err != nil {
			return nil, err
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}

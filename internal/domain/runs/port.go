package runs

import "context"

// Repository defines persistence for run audit rows
type Repository interface {
	Save(ctx context.Context, r *Run) error
	Latest(ctx context.Context, limit int) ([]*Run, error)
}

// ArtifactStore port (interface for archiving run artifacts)
type ArtifactStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

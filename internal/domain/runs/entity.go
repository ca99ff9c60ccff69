package runs

import "time"

// RunID identifier type
type RunID string

// Status enum
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Run is the audit row written after every pipeline run, successful or not.
type Run struct {
	ID          RunID     `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Status      Status    `json:"status"`
	Fetched     int       `json:"fetched"`
	New         int       `json:"new"`
	Persisted   int       `json:"persisted"`
	Duplicates  int       `json:"duplicates"`
	Skipped     int       `json:"skipped"`
	Purged      int64     `json:"purged"`
	Error       string    `json:"error,omitempty"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
}

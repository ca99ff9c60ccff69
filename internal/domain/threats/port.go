package threats

import (
	"context"
	"time"
)

// Filter narrows List queries. Zero value means "all".
type Filter struct {
	// MinLevel filters on the effective level (human override if present,
	// else the AI level).
	MinLevel *int
	// Since keeps records created at or after the given time.
	Since *time.Time
	// Query is a substring match over title and ai_summary.
	Query string
	// RequiresReview filters on the low-confidence flag.
	RequiresReview *bool
}

// Repository port (interface for persistence)
type Repository interface {
	// Insert stores a new record and assigns its ID. A source_url
	// collision returns ErrDuplicateURL and leaves the store unchanged.
	Insert(ctx context.Context, r *Record) error
	Get(ctx context.Context, id ThreatID) (*Record, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	List(ctx context.Context, f Filter) ([]*Record, error)
	Count(ctx context.Context) (int64, error)
	// ApplyReview sets the human_* columns, stamps reviewed_by/reviewed_at
	// and updated_at, and returns the updated record.
	ApplyReview(ctx context.Context, id ThreatID, o Override, reviewedAt time.Time) (*Record, error)
	// Purge deletes records created strictly before cutoff and returns the
	// number deleted.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

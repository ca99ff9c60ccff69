package classify

import "context"

// Classifier port. Implementations score the whole batch in one pass;
// an item missing from the returned slice is treated as skipped by the
// caller, never as a fault.
type Classifier interface {
	Classify(ctx context.Context, items []Item) ([]Result, error)
}

package news

import "context"

// Source port (interface for the external headline aggregator)
type Source interface {
	Fetch(ctx context.Context) ([]Article, error)
}

package news

import "errors"

// ErrSourceUnavailable indicates the aggregator could not be reached or
// answered with a non-2xx status. The fetch step fails the whole run.
var ErrSourceUnavailable = errors.New("news source unavailable")

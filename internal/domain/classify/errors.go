package classify

import "errors"

// ErrClassificationFailed indicates the external classification call failed
// (transport error, malformed response). The whole batch is abandoned.
var ErrClassificationFailed = errors.New("classification failed")

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

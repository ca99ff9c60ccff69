package threats

import "errors"

// ErrDuplicateURL indicates an insert collided with the source_url unique
// constraint. Callers skip the record and move on.
var ErrDuplicateURL = errors.New("duplicate source url")

// ErrNotFound indicates no record exists with the given id.
var ErrNotFound = errors.New("threat not found")

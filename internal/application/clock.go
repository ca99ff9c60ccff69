package application

import "time"

// Clock abstraction so review stamps and purge cutoffs are testable
type Clock interface {
	Now() time.Time
}

// SystemClock default implementation, uses time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

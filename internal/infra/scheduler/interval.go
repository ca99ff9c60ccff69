package scheduler

import (
	"context"
	"time"
)

// IntervalScheduler fires a job on a fixed period. It is owned by the
// process entrypoint and stopped explicitly, not left to die with the
// process.
type IntervalScheduler struct {
	interval time.Duration
	stop     chan struct{}
}

func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	return &IntervalScheduler{interval: interval}
}

// Start fires the job once immediately, then on every tick.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) {
	if job == nil || s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the ticker goroutine.
func (s *IntervalScheduler) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}

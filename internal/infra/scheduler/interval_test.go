package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartFiresImmediately(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	done := make(chan struct{})
	s := NewIntervalScheduler(time.Hour)
	s.Start(context.Background(), func(time.Time) {
		if fired.Add(1) == 1 {
			close(done)
		}
	})
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not fire on start")
	}
}

func TestStartFiresOnTicks(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	s := NewIntervalScheduler(10 * time.Millisecond)
	s.Start(context.Background(), func(time.Time) { fired.Add(1) })
	defer s.Stop()

	deadline := time.After(time.Second)
	for fired.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("fired %d times, want at least 3", fired.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStopHaltsTicking(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	s := NewIntervalScheduler(10 * time.Millisecond)
	s.Start(context.Background(), func(time.Time) { fired.Add(1) })

	time.Sleep(50 * time.Millisecond)
	s.Stop()
	// let any in-flight tick drain before sampling
	time.Sleep(20 * time.Millisecond)

	n := fired.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != n {
		t.Errorf("job fired %d more times after Stop", got-n)
	}
}

func TestContextCancelHaltsTicking(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var fired atomic.Int32
	s := NewIntervalScheduler(10 * time.Millisecond)
	s.Start(ctx, func(time.Time) { fired.Add(1) })
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	n := fired.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != n {
		t.Errorf("job fired %d more times after context cancel", got-n)
	}
}

package scheduler

import (
	"sync"
	"testing"
	"time"
)

func TestRetryQueue_FIFO(t *testing.T) {
	q := &RetryQueue[int]{}
	if _, ok := q.Pop(); ok {
		t.Fatal("empty queue should not pop")
	}

	for i := 1; i <= 3; i++ {
		q.Push(i)
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 queued, got %d", q.Len())
	}
	for want := 1; want <= 3; want++ {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Errorf("Pop() = %d, %v; want %d", got, ok, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestStatusTracker_ConcurrentUpdates(t *testing.T) {
	s := &StatusTracker{}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.MarkStarted()
			s.MarkRetry()
			if i%4 == 0 {
				s.MarkFailed()
			} else {
				s.MarkSucceeded()
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.Started != 100 || snap.Succeeded != 75 || snap.Failed != 25 || snap.Retries != 100 {
		t.Errorf("unexpected counters: %+v", snap)
	}
	if snap.InProgress != snap.Started-snap.Succeeded-snap.Failed {
		t.Errorf("in progress %d does not match counters %+v", snap.InProgress, snap)
	}
}

func TestStatusTracker_RateLimitTimeIsMonotonic(t *testing.T) {
	s := &StatusTracker{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.MarkRateLimited(base.Add(10 * time.Second))
	s.MarkRateLimited(base)

	if got := s.LastRateLimit(); !got.Equal(base.Add(10 * time.Second)) {
		t.Errorf("last rate limit = %v, want the later signal", got)
	}
	if got := s.Snapshot().RateLimitErrors; got != 2 {
		t.Errorf("expected 2 rate limit errors, got %d", got)
	}
}

func TestCooldownGovernor_Remaining(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		window   time.Duration
		signal   bool
		now      time.Time
		expected time.Duration
	}{
		{"no signal yet", 15 * time.Second, false, base, 0},
		{"cooldown disabled", 0, true, base, 0},
		{"right after signal", 15 * time.Second, true, base, 15 * time.Second},
		{"halfway", 15 * time.Second, true, base.Add(5 * time.Second), 10 * time.Second},
		{"window elapsed", 15 * time.Second, true, base.Add(15 * time.Second), 0},
		{"long after", 15 * time.Second, true, base.Add(time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := &StatusTracker{}
			if tt.signal {
				status.MarkRateLimited(base)
			}
			g := NewCooldownGovernor(status, tt.window)
			if got := g.Remaining(tt.now); got != tt.expected {
				t.Errorf("Remaining() = %v, want %v", got, tt.expected)
			}
		})
	}
}

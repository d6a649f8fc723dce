package scheduler

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of a run's progress counters.
type Snapshot struct {
	RunID             string    `json:"run_id,omitempty"`
	Started           int       `json:"started"`
	InProgress        int       `json:"in_progress"`
	Succeeded         int       `json:"succeeded"`
	Failed            int       `json:"failed"`
	Rejected          int       `json:"rejected"`
	Retries           int       `json:"retries"`
	RateLimitErrors   int       `json:"rate_limit_errors"`
	LastRateLimitTime time.Time `json:"last_rate_limit_time"`
	CoolingDown       bool      `json:"cooling_down"`
}

// StatusTracker holds the shared progress counters of one run.
//
// A request is counted as started on its first dispatch and stays in
// progress, including while it waits in the retry queue, until it succeeds
// or fails terminally, so InProgress == Started - Succeeded - Failed.
type StatusTracker struct {
	mu sync.Mutex

	started         int
	inProgress      int
	succeeded       int
	failed          int
	rejected        int
	retries         int
	rateLimitErrors int
	lastRateLimit   time.Time
}

// MarkStarted records the first dispatch of a request.
func (s *StatusTracker) MarkStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	s.inProgress++
}

// MarkSucceeded records a request that completed successfully.
func (s *StatusTracker) MarkSucceeded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded++
	s.inProgress--
}

// MarkFailed records a request that failed terminally.
func (s *StatusTracker) MarkFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.inProgress--
}

// MarkRejected records a request refused before dispatch. Rejected
// requests never count as started.
func (s *StatusTracker) MarkRejected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected++
}

// MarkRetry records a request sent back to the retry queue.
func (s *StatusTracker) MarkRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries++
}

// MarkRateLimited records a rate-limit signal observed at.
func (s *StatusTracker) MarkRateLimited(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitErrors++
	if at.After(s.lastRateLimit) {
		s.lastRateLimit = at
	}
}

// InProgress returns the number of requests that have not reached a terminal outcome.
func (s *StatusTracker) InProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProgress
}

// LastRateLimit returns when the last rate-limit signal was recorded.
func (s *StatusTracker) LastRateLimit() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRateLimit
}

// Snapshot copies the counters.
func (s *StatusTracker) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Started:           s.started,
		InProgress:        s.inProgress,
		Succeeded:         s.succeeded,
		Failed:            s.failed,
		Rejected:          s.rejected,
		Retries:           s.retries,
		RateLimitErrors:   s.rateLimitErrors,
		LastRateLimitTime: s.lastRateLimit,
	}
}

// CooldownGovernor suppresses new dispatch for a fixed window after the
// last rate-limit signal recorded in a StatusTracker.
type CooldownGovernor struct {
	status *StatusTracker
	window time.Duration
}

// NewCooldownGovernor creates a governor over status.
func NewCooldownGovernor(status *StatusTracker, window time.Duration) *CooldownGovernor {
	return &CooldownGovernor{status: status, window: window}
}

// Remaining returns how long dispatch stays suppressed at now. Zero means
// dispatch is allowed.
func (g *CooldownGovernor) Remaining(now time.Time) time.Duration {
	last := g.status.LastRateLimit()
	if g.window <= 0 || last.IsZero() {
		return 0
	}
	if remaining := last.Add(g.window).Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// Package scheduler dispatches a batch of requests to a rate-limited remote
// service.
//
// A single coordinating loop pulls work (queued retries first, then fresh
// requests), gates each dispatch on a two-bucket capacity budget and on the
// cooldown that follows a rate-limit signal, and runs every attempt in its own
// goroutine. The run ends once no request is in progress, the source is
// exhausted and the retry queue is empty. Responses come back in input order
// whatever the completion order.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/vietddude/requester/internal/metrics"
	"github.com/vietddude/requester/internal/throttle"
)

// Option customises a Scheduler.
type Option func(*options)

type options struct {
	name   string
	clock  clockwork.Clock
	logger *slog.Logger
	sink   OutcomeSink
}

// WithName labels logs and metrics of this scheduler.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOutcomeSink records every attempt outcome in sink.
func WithOutcomeSink(sink OutcomeSink) Option {
	return func(o *options) { o.sink = sink }
}

// Scheduler paces requests against per-minute request and cost quotas.
//
// The capacity budget belongs to the Scheduler, so consecutive runs share the
// same quota. Progress counters belong to a run.
type Scheduler[T any] struct {
	cfg    Config
	opts   options
	budget *throttle.CapacityBudget

	mu     sync.RWMutex
	status *StatusTracker
	runID  string
}

// New validates cfg and creates a Scheduler.
func New[T any](cfg Config, opts ...Option) (*Scheduler[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		name:   "default",
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("scheduler", o.name)

	return &Scheduler[T]{
		cfg:    cfg,
		opts:   o,
		budget: throttle.NewCapacityBudget(cfg.MaxRequestsPerMinute, cfg.MaxCostPerMinute),
		status: &StatusTracker{},
	}, nil
}

// Config returns the validated configuration.
func (s *Scheduler[T]) Config() Config {
	return s.cfg
}

// Status returns the counters of the current or most recent run.
func (s *Scheduler[T]) Status() Snapshot {
	s.mu.RLock()
	status, runID := s.status, s.runID
	s.mu.RUnlock()

	snap := status.Snapshot()
	snap.RunID = runID
	snap.CoolingDown = NewCooldownGovernor(status, s.cfg.Cooldown).Remaining(s.opts.clock.Now()) > 0
	return snap
}

// RunSlice checks every request cost before dispatching anything, then runs
// the batch. An unservable cost fails the whole call with a configuration error.
func (s *Scheduler[T]) RunSlice(ctx context.Context, reqs []Request[T]) ([]Response[T], error) {
	for i, req := range reqs {
		if err := s.cfg.CheckCost(req.Cost()); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
	}
	out, err := s.Run(ctx, NewSliceSource(reqs))
	// An aborted run never pulled the tail of the slice.
	for id := len(out); id < len(reqs); id++ {
		out = append(out, Response[T]{ID: id, Err: err})
	}
	return out, err
}

// Run dispatches every request of src and waits for all of them to reach a
// terminal outcome. A request whose cost can never be reserved is not
// dispatched; its response carries a configuration error.
//
// The returned error is non-nil only when ctx ends the run early. Responses
// that never completed then carry ctx's error.
func (s *Scheduler[T]) Run(ctx context.Context, src Source[T]) ([]Response[T], error) {
	runID := uuid.NewString()
	logger := s.opts.logger.With("run_id", runID)

	status := &StatusTracker{}
	s.mu.Lock()
	s.status, s.runID = status, runID
	s.mu.Unlock()

	var (
		retries   = &RetryQueue[*task[T]]{}
		results   = newResultSet[T]()
		cooldown  = NewCooldownGovernor(status, s.cfg.Cooldown)
		running   = atomic.NewInt32(0)
		wg        sync.WaitGroup
		next      *task[T]
		nextID    int
		exhausted bool
		runErr    error
	)

	exec := &executor[T]{
		name:    s.opts.name,
		runID:   runID,
		clock:   s.opts.clock,
		timeout: s.cfg.RequestTimeout,
		logger:  logger,
		status:  status,
		retries: retries,
		results: results,
		sink:    s.opts.sink,
	}

	logger.Info("Scheduler started",
		"max_requests_per_minute", s.cfg.MaxRequestsPerMinute,
		"max_cost_per_minute", s.cfg.MaxCostPerMinute,
		"max_attempts", s.cfg.MaxAttempts,
	)

	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		// Wait for a free execution slot before fetching, so that retries
		// queued in the meantime still go first.
		if s.cfg.MaxInFlight > 0 && int(running.Load()) >= s.cfg.MaxInFlight {
			s.sleep(ctx, s.cfg.PollInterval)
			continue
		}

		if next == nil {
			if t, ok := retries.Pop(); ok {
				next = t
				logger.Debug("Retrying request", "request_id", t.id, "attempts_left", t.attemptsLeft)
			} else if !exhausted {
				req, ok := src.Next()
				if !ok {
					exhausted = true
					logger.Debug("Request source exhausted", "requests", nextID)
				} else {
					id := nextID
					nextID++
					if err := s.cfg.CheckCost(req.Cost()); err != nil {
						status.MarkRejected()
						results.set(Response[T]{ID: id, Err: fmt.Errorf("request %d: %w", id, err)})
						logger.Error("Rejected request", "request_id", id, "error", err)
						continue
					}
					next = &task[T]{id: id, req: req, cost: req.Cost(), attemptsLeft: s.cfg.MaxAttempts}
				}
			}
		}

		now := s.opts.clock.Now()
		s.budget.Refill(now)
		s.observeCapacity()

		if next == nil {
			// Draining: the retry queue is checked before the in-progress
			// count, because a request is queued for retry before its
			// executor lets go of it.
			if exhausted && retries.Len() == 0 && status.InProgress() == 0 {
				break
			}
			s.sleep(ctx, s.cfg.PollInterval)
			continue
		}

		if wait := cooldown.Remaining(now); wait > 0 {
			logger.Warn("Pausing to cool down", "until", now.Add(wait).Format(time.RFC3339))
			s.sleep(ctx, wait)
			continue
		}

		if !s.budget.TryReserve(next.cost) {
			s.sleep(ctx, s.cfg.PollInterval)
			continue
		}

		t := next
		next = nil
		t.attemptsLeft--
		t.attempts++
		if t.attempts == 1 {
			status.MarkStarted()
			metrics.RequestsStarted.WithLabelValues(s.opts.name).Inc()
			metrics.InProgress.WithLabelValues(s.opts.name).Set(float64(status.InProgress()))
		}

		running.Inc()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer running.Dec()
			exec.execute(ctx, t)
		}()
	}

	wg.Wait()

	if runErr != nil {
		// Started requests left waiting for another attempt end here.
		if next != nil && next.attempts > 0 {
			retries.Push(next)
		}
		for {
			t, ok := retries.Pop()
			if !ok {
				break
			}
			status.MarkFailed()
			results.set(Response[T]{
				ID:  t.id,
				Err: &TaskError{RequestID: t.id, Attempts: t.attempts, History: multierr.Append(t.history, runErr)},
			})
		}
		metrics.InProgress.WithLabelValues(s.opts.name).Set(float64(status.InProgress()))
	}

	snap := status.Snapshot()
	logger.Info("Scheduler finished",
		"requests", nextID,
		"succeeded", snap.Succeeded,
		"failed", snap.Failed,
		"rejected", snap.Rejected,
		"retries", snap.Retries,
	)
	if snap.RateLimitErrors > 0 {
		logger.Warn("Rate limit errors received, consider running at a lower rate",
			"rate_limit_errors", snap.RateLimitErrors)
	}

	return results.ordered(nextID, runErr), runErr
}

func (s *Scheduler[T]) observeCapacity() {
	slots, cost := s.budget.Available()
	metrics.AvailableCapacity.WithLabelValues(s.opts.name, "requests").Set(slots)
	metrics.AvailableCapacity.WithLabelValues(s.opts.name, "cost").Set(cost)
}

func (s *Scheduler[T]) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-s.opts.clock.After(d):
	}
}

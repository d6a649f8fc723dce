package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"

	"github.com/vietddude/requester/internal/core/domain"
	"github.com/vietddude/requester/internal/metrics"
)

// task is a request owned by the scheduler together with its retry state.
type task[T any] struct {
	id           int
	req          Request[T]
	cost         int
	attemptsLeft int
	attempts     int
	history      error
}

// executor runs single attempts and applies their outcome to the shared run state.
type executor[T any] struct {
	name    string
	runID   string
	clock   clockwork.Clock
	timeout time.Duration
	logger  *slog.Logger

	status  *StatusTracker
	retries *RetryQueue[*task[T]]
	results *resultSet[T]
	sink    OutcomeSink
}

// execute performs one attempt of t. attemptsLeft has already been
// decremented for this attempt by the coordinator.
//
// Pushing t to the retry queue hands it back to the coordinator, so the
// push is the last access to t.
func (e *executor[T]) execute(ctx context.Context, t *task[T]) {
	id, attempt, left := t.id, t.attempts, t.attemptsLeft
	e.logger.Debug("Starting request", "request_id", id, "attempt", attempt)

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	start := e.clock.Now()
	value, err := t.req.Perform(callCtx)
	cancel()
	latency := e.clock.Now().Sub(start)

	if err == nil {
		e.results.set(Response[T]{ID: id, Value: value})
		e.status.MarkSucceeded()
		e.observe(ctx, id, attempt, "success", false, latency)
		e.logger.Debug("Request succeeded", "request_id", id, "attempt", attempt)
		return
	}

	kind := domain.Classify(err)
	if ctx.Err() != nil {
		// The run itself was cancelled; nothing will pick up a retry.
		kind = domain.FailurePermanent
	}
	t.history = multierr.Append(t.history, fmt.Errorf("attempt %d: %w", attempt, err))

	if kind == domain.FailureResourceExhausted {
		e.status.MarkRateLimited(e.clock.Now())
		metrics.RateLimitErrors.WithLabelValues(e.name).Inc()
	}

	if kind.Retryable() && left > 0 {
		e.status.MarkRetry()
		metrics.Retries.WithLabelValues(e.name, string(kind)).Inc()
		e.observe(ctx, id, attempt, string(kind), false, latency)
		e.logger.Warn("Request failed, queued for retry",
			"request_id", id,
			"attempt", attempt,
			"attempts_left", left,
			"kind", kind,
			"error", err,
		)
		e.retries.Push(t)
		return
	}

	e.results.set(Response[T]{
		ID:  id,
		Err: &TaskError{RequestID: id, Attempts: attempt, History: t.history},
	})
	e.status.MarkFailed()
	metrics.RequestsFailed.WithLabelValues(e.name, string(kind)).Inc()
	e.observe(ctx, id, attempt, string(kind), true, latency)
	e.logger.Error("Request failed after all attempts",
		"request_id", id,
		"attempts", attempt,
		"kind", kind,
		"errors", t.history,
	)
}

func (e *executor[T]) observe(ctx context.Context, id, attempt int, outcome string, terminal bool, latency time.Duration) {
	metrics.AttemptLatency.WithLabelValues(e.name, outcome).Observe(latency.Seconds())
	metrics.InProgress.WithLabelValues(e.name).Set(float64(e.status.InProgress()))
	if outcome == "success" {
		metrics.RequestsSucceeded.WithLabelValues(e.name).Inc()
	}

	if e.sink == nil {
		return
	}
	err := e.sink.Record(context.WithoutCancel(ctx), Outcome{
		RunID:     e.runID,
		RequestID: id,
		Attempt:   attempt,
		Outcome:   outcome,
		Terminal:  terminal || outcome == "success",
		Latency:   latency,
		At:        e.clock.Now(),
	})
	if err != nil {
		e.logger.Debug("Failed to record outcome", "request_id", id, "error", err)
	}
}

// resultSet collects responses from concurrently finishing executors.
type resultSet[T any] struct {
	mu   sync.Mutex
	byID map[int]Response[T]
}

func newResultSet[T any]() *resultSet[T] {
	return &resultSet[T]{byID: make(map[int]Response[T])}
}

func (r *resultSet[T]) set(resp Response[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[resp.ID] = resp
}

// ordered returns responses 0..n-1 by request position. Positions without a
// response, which only happens when the run is aborted, carry missing.
func (r *resultSet[T]) ordered(n int, missing error) []Response[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Response[T], n)
	for id := 0; id < n; id++ {
		resp, ok := r.byID[id]
		if !ok {
			resp = Response[T]{ID: id, Err: missing}
		}
		out[id] = resp
	}
	return out
}

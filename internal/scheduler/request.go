package scheduler

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Request is one remote call the scheduler can dispatch.
type Request[T any] interface {
	// Cost is the weight of one call against the cost-per-minute quota.
	Cost() int

	// Perform executes the call. Errors should be marked with
	// domain.ResourceExhausted, domain.Transient or domain.Permanent;
	// unmarked errors are retried as transient.
	Perform(ctx context.Context) (T, error)
}

// Source yields requests in order. ok is false once the source is exhausted;
// an exhausted source must stay exhausted.
type Source[T any] interface {
	Next() (req Request[T], ok bool)
}

// SliceSource serves requests from a slice.
type SliceSource[T any] struct {
	items []Request[T]
	pos   int
}

// NewSliceSource creates a source over reqs.
func NewSliceSource[T any](reqs []Request[T]) *SliceSource[T] {
	return &SliceSource[T]{items: reqs}
}

// Next implements Source.
func (s *SliceSource[T]) Next() (Request[T], bool) {
	if s.pos >= len(s.items) {
		return nil, false
	}
	req := s.items[s.pos]
	s.pos++
	return req, true
}

// FuncSource adapts a generator function into a Source.
type FuncSource[T any] func() (Request[T], bool)

// Next implements Source.
func (f FuncSource[T]) Next() (Request[T], bool) {
	return f()
}

// Response is the outcome of one request, aligned with its input position.
type Response[T any] struct {
	ID    int
	Value T
	Err   error
}

// TaskError is the terminal failure of a request, carrying every error
// observed across its attempts.
type TaskError struct {
	RequestID int
	Attempts  int
	History   error
}

func (e *TaskError) Error() string {
	errs := multierr.Errors(e.History)
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("request %d failed after %d attempt(s): [%s]",
		e.RequestID, e.Attempts, strings.Join(msgs, "; "))
}

// Unwrap exposes the attempt errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return multierr.Errors(e.History)
}

// Collect returns the values in input order, or the combined terminal
// errors if any request failed.
func Collect[T any](responses []Response[T]) ([]T, error) {
	var errs error
	values := make([]T, len(responses))
	for i, r := range responses {
		if r.Err != nil {
			errs = multierr.Append(errs, r.Err)
			continue
		}
		values[i] = r.Value
	}
	if errs != nil {
		return nil, errs
	}
	return values, nil
}

package scheduler

import (
	"context"
	"time"
)

// Outcome describes the result of one attempt.
type Outcome struct {
	RunID     string
	RequestID int
	Attempt   int
	Outcome   string // "success" or a domain.FailureKind
	Terminal  bool
	Latency   time.Duration
	At        time.Time
}

// OutcomeSink receives attempt outcomes. Recording is best-effort: errors
// are logged and never affect scheduling.
type OutcomeSink interface {
	Record(ctx context.Context, o Outcome) error
}

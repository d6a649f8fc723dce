// Package health reports scheduler health over HTTP.
package health

import (
	"github.com/vietddude/requester/internal/scheduler"
)

// SystemStatus represents the health state of the process or a scheduler.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// StatusProvider exposes live scheduler counters.
type StatusProvider interface {
	Status() scheduler.Snapshot
}

// SchedulerHealth is the health of one scheduler.
type SchedulerHealth struct {
	Name   string             `json:"name"`
	Status SystemStatus       `json:"status"`
	Stats  scheduler.Snapshot `json:"stats"`
}

// Evaluate derives a status from a snapshot. A scheduler is degraded while
// it cools down after a rate limit or once a request has failed, and
// critical when requests have failed and none has succeeded.
func Evaluate(snap scheduler.Snapshot) SystemStatus {
	switch {
	case snap.Failed > 0 && snap.Succeeded == 0:
		return StatusCritical
	case snap.CoolingDown || snap.Failed > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// Aggregate returns the worst status of the report.
func Aggregate(report map[string]SchedulerHealth) SystemStatus {
	status := StatusHealthy
	for _, h := range report {
		if h.Status == StatusCritical {
			return StatusCritical
		}
		if h.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}

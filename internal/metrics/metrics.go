package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsStarted tracks requests dispatched for the first time
	RequestsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requester_requests_started_total",
			Help: "Total number of requests dispatched for the first time",
		},
		[]string{"scheduler"},
	)

	// RequestsSucceeded tracks requests that completed successfully
	RequestsSucceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requester_requests_succeeded_total",
			Help: "Total number of requests that succeeded",
		},
		[]string{"scheduler"},
	)

	// RequestsFailed tracks terminal failures by failure kind
	RequestsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requester_requests_failed_total",
			Help: "Total number of requests that failed terminally",
		},
		[]string{"scheduler", "kind"},
	)

	// Retries tracks attempts sent back to the retry queue
	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requester_retries_total",
			Help: "Total number of failed attempts queued for retry",
		},
		[]string{"scheduler", "kind"},
	)

	// RateLimitErrors tracks rate-limit signals from the remote service
	RateLimitErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requester_rate_limit_errors_total",
			Help: "Total number of rate-limit signals received",
		},
		[]string{"scheduler"},
	)

	// InProgress tracks requests not yet at a terminal outcome
	InProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "requester_requests_in_progress",
			Help: "Requests dispatched but not yet succeeded or failed",
		},
		[]string{"scheduler"},
	)

	// AvailableCapacity tracks the budget left in each bucket
	AvailableCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "requester_available_capacity",
			Help: "Capacity available in the per-minute budget",
		},
		[]string{"scheduler", "bucket"},
	)

	// AttemptLatency tracks the duration of each remote call
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "requester_attempt_latency_seconds",
			Help:    "Remote call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scheduler", "outcome"},
	)
)

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by route pattern and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraisal_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appraisal_http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// WorkflowActions counts accepted and rejected workflow operations.
	WorkflowActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraisal_workflow_actions_total",
			Help: "Workflow operations by role, action and outcome",
		},
		[]string{"role", "action", "outcome"},
	)

	DirectoryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraisal_directory_lookups_total",
			Help: "Employee directory lookups by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	DirectoryBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "appraisal_directory_breaker_state",
			Help: "Directory circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraisal_job_runs_total",
			Help: "Background job executions by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docketwatch"

// HTTP metrics. Paths are collapsed to route shapes before labeling
// so archive IDs in URLs cannot blow up cardinality.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests served, by method, route shape, and status",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency, by method and route shape",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "API requests currently being served",
		},
	)
)

// Background job metrics. Job durations run long because auto-download
// jobs wait on archive fetches, hence the coarse buckets.
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Background jobs finished, by type and outcome",
		},
		[]string{"type", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Background job runtime, by type",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	JobRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_retries_total",
			Help:      "Background job attempts that were rescheduled, by type",
		},
		[]string{"type"},
	)
)

// Upstream archive metrics
var (
	ArchiveRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_requests_total",
			Help:      "Total number of requests to the court data archive",
		},
		[]string{"operation", "status"},
	)

	ArchiveRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_request_duration_seconds",
			Help:      "Court data archive request latency distribution",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

// Business metrics
var (
	DocumentsAcquired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_acquired_total",
			Help:      "Total number of documents stored locally",
		},
		[]string{"method"}, // "free" or "purchased"
	)

	PurchasesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_submitted_total",
			Help:      "Total number of purchase jobs submitted to the archive",
		},
	)

	PurchasesSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_settled_total",
			Help:      "Total number of purchase jobs reaching a terminal state",
		},
		[]string{"status"}, // "completed", "failed", "timed_out"
	)

	PurchasePollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_polls_total",
			Help:      "Total number of purchase status poll attempts",
		},
	)

	PurchaseSpendCents = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_spend_cents_total",
			Help:      "Total actual cost of completed purchases in cents",
		},
	)

	LedgerRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_refreshes_total",
			Help:      "Total number of credit balance fetches from the archive",
		},
	)

	MonitorChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_checks_total",
			Help:      "Total number of monitored case update checks",
		},
		[]string{"result"}, // "updates", "none", "error"
	)

	FilingAlertsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filing_alerts_sent_total",
			Help:      "Total number of new-filing alert emails sent",
		},
	)

	AnalysesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_submitted_total",
			Help:      "Total number of documents submitted for analysis",
		},
	)
)

// JobCompleted records a successful job run and its duration.
func JobCompleted(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a job that exhausted its retries or failed permanently.
func JobFailed(jobType string) {
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
}

// JobRetried records a failed attempt that was rescheduled.
func JobRetried(jobType string) {
	JobRetriesTotal.WithLabelValues(jobType).Inc()
}

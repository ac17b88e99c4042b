// internal/common/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	CompletionEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_evaluations_total",
			Help: "Document completion evaluations by document type and readiness",
		},
		[]string{"document_type", "ready"},
	)

	CompletionPercentage = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "completion_percentage",
			Help:    "Distribution of document completion percentages",
			Buckets: []float64{0, 25, 50, 75, 90, 99, 100},
		},
		[]string{"document_type"},
	)

	CompletionCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_cache_requests_total",
			Help: "Completion cache lookups by result",
		},
		[]string{"result"},
	)

	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Requests sent to the onboarding backend API",
		},
		[]string{"method", "route", "status"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Latency of onboarding backend API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	BackendTokenRefresh = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_token_refresh_total",
			Help: "Access token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	DocumentsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_generated_total",
			Help: "Document generation requests by type and outcome",
		},
		[]string{"document_type", "outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Readiness notifications by channel and status",
		},
		[]string{"channel", "status"},
	)
)

// ObserveBackendRequest records one backend round trip. status is 0 when
// no response was received.
func ObserveBackendRequest(method, route string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	BackendRequests.WithLabelValues(method, route, label).Inc()
	BackendRequestDuration.WithLabelValues(method, route, label).Observe(elapsed.Seconds())
}

// ObserveCompletion records one document evaluation.
func ObserveCompletion(documentType string, percentage int, ready bool) {
	CompletionEvaluations.WithLabelValues(documentType, strconv.FormatBool(ready)).Inc()
	CompletionPercentage.WithLabelValues(documentType).Observe(float64(percentage))
}

// JobStarted marks a job active and returns a func that records its
// duration when the handler returns.
func JobStarted(taskType string) func() {
	start := time.Now()
	WorkerJobsActive.WithLabelValues(taskType).Inc()

	return func() {
		WorkerJobsActive.WithLabelValues(taskType).Dec()
		WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	}
}

func JobCompleted(taskType string) {
	WorkerJobsCompleted.WithLabelValues(taskType).Inc()
}

func JobFailed(taskType, errorCode string) {
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}

// internal/common/metrics/metrics.go
package metrics

import (
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

	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_wizard_transitions_total",
			Help: "Wizard step transitions by operation and resulting step",
		},
		[]string{"operation", "step"},
	)

	WizardValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_validation_failures_total",
			Help: "Next attempts blocked by validation, per field",
		},
		[]string{"field"},
	)

	CollaboratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_collaborator_failures_total",
			Help: "Failed calls to guide, summarizer, payment and submission collaborators",
		},
		[]string{"collaborator"},
	)

	DraftOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_draft_operations_total",
			Help: "Draft store operations by outcome",
		},
		[]string{"operation", "result"},
	)

	SubmissionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "funnel_submissions_created_total",
			Help: "Submissions created at payment completion",
		},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_llm_request_duration_seconds",
			Help:    "GenAI request latency by purpose",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"purpose"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_http_requests_total",
			Help: "HTTP requests by route pattern, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "funnel_http_request_duration_seconds",
			Help: "HTTP request latency by route pattern",
		},
		[]string{"route", "method"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnel_active_sessions",
			Help: "Wizard sessions currently held in memory",
		},
	)
)

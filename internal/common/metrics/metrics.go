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

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investigation_cache_lookups_total",
			Help: "Cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investigation_model_calls_total",
			Help: "Model invocations by outcome (ok, rate_limited, unavailable, error)",
		},
		[]string{"outcome"},
	)

	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investigation_classifications_total",
			Help: "Answers by classification",
		},
		[]string{"classification"},
	)

	StorageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investigation_storage_failures_total",
			Help: "Non-fatal storage faults by store and operation",
		},
		[]string{"store", "op"},
	)

	ActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "investigation_action_duration_seconds",
			Help:    "Duration of each workflow action",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"action"},
	)

	Suspensions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "investigation_suspensions_total",
			Help: "Workflows that suspended awaiting human evaluation",
		},
	)

	Resumptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investigation_resumptions_total",
			Help: "Human evaluations processed by verdict",
		},
		[]string{"verdict"},
	)
)

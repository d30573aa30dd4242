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

	RankingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_runs_total",
			Help: "Recompute runs by outcome",
		},
		[]string{"outcome"},
	)

	RankingRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ranking_run_duration_seconds",
			Help:    "Wall time of recompute runs",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"outcome"},
	)

	SuppliersScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_suppliers_scored_total",
			Help: "Supplier snapshots computed",
		},
		[]string{"region"},
	)

	SupplierFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_supplier_failures_total",
			Help: "Suppliers whose score computation failed",
		},
		[]string{"region"},
	)

	InsufficientData = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_insufficient_data_total",
			Help: "Snapshots flagged with insufficient submissions",
		},
		[]string{"region"},
	)

	RegionSuppliers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ranking_region_suppliers",
			Help: "Suppliers with a current snapshot per region after the last ranking pass",
		},
		[]string{"region"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_cache_lookups_total",
			Help: "Current-ranking cache lookups by result",
		},
		[]string{"result"},
	)
)

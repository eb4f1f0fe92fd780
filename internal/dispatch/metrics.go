package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatchd",
			Subsystem: "pool",
			Name:      "jobs_total",
			Help:      "Total jobs executed, by worker and outcome",
		},
		[]string{"worker", "outcome"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatchd",
			Subsystem: "pool",
			Name:      "job_duration_seconds",
			Help:      "Wall time of job execution on a worker",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"worker"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dispatchd",
			Subsystem: "pool",
			Name:      "queue_depth",
			Help:      "Jobs currently waiting in a worker queue",
		},
		[]string{"worker"},
	)

	chunksEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatchd",
			Subsystem: "pool",
			Name:      "chunks_emitted_total",
			Help:      "Output chunks forwarded from workers to callers",
		},
		[]string{"worker"},
	)

	workerRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatchd",
			Subsystem: "pool",
			Name:      "worker_restarts_total",
			Help:      "Worker loop restarts after a fault",
		},
		[]string{"worker"},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal, jobDuration, queueDepth, chunksEmitted, workerRestarts)
}

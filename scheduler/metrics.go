package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "scheduler",
		Name:      "job_runs_total",
		Help:      "Scheduled jobs by outcome: success, failure, skipped (already in flight) or dropped (queue full).",
	}, []string{"chain", "domain", "result"})
	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "scheduler",
		Name:      "jobs_in_flight",
		Help:      "Jobs queued or running.",
	})
)

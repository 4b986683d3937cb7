package subgraph

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "subgraph",
		Name:      "request_results_total",
	}, []string{"endpoint", "operation", "status"})

	RequestDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "indexer",
		Subsystem: "subgraph",
		Name:      "request_duration_seconds",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 60},
	}, []string{"endpoint", "operation"})
)

func ObserveError(endpoint, operation string, err error) {
	switch {
	case err == nil:
		ObserveResult(endpoint, operation, "ok")
	case errors.Is(err, context.DeadlineExceeded):
		ObserveResult(endpoint, operation, "timeout")
	case errors.Is(err, ErrGraphQL):
		ObserveResult(endpoint, operation, "graphql-error")
	default:
		ObserveResult(endpoint, operation, "error")
	}
}

func ObserveResult(endpoint, operation, status string) {
	RequestResults.WithLabelValues(endpoint, operation, status).Inc()
}

func ObserveDuration(endpoint, operation string) func() time.Duration {
	return prometheus.NewTimer(RequestDurations.WithLabelValues(endpoint, operation)).ObserveDuration
}

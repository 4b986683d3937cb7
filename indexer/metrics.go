package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CursorValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "sync",
		Name:      "cursor",
		Help:      "Stored position of a stream. Items below it are imported.",
	}, []string{"chain", "stream", "owner"})
	RemoteCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "sync",
		Name:      "remote_count",
		Help:      "Number of items of a stream reported by the subgraph.",
	}, []string{"chain", "stream", "owner"})
	ImportedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "sync",
		Name:      "imported_items_total",
		Help:      "Items written by importers.",
	}, []string{"chain", "stream"})
	StreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "sync",
		Name:      "stream_failures_total",
		Help:      "Failed stream imports. The cursor is reset to its prior value after each.",
	}, []string{"chain", "stream"})
	RollbackFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "sync",
		Name:      "rollback_failures_total",
		Help:      "Cursor resets that could not be written. Requires operator attention.",
	}, []string{"chain", "stream"})
	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "indexer",
		Subsystem: "sync",
		Name:      "pass_duration_seconds",
		Help:      "Duration of a sync pass.",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 3600},
	}, []string{"chain", "domain", "result"})
)

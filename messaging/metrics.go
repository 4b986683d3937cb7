package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PublishResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "messaging",
		Name:      "publish_results_total",
		Help:      "Published messages by channel and result.",
	}, []string{"channel", "result"})
	ReceivedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "messaging",
		Name:      "received_total",
		Help:      "Messages received by the listener, by channel and result.",
	}, []string{"channel", "result"})
	ListenerReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "messaging",
		Name:      "listener_reconnects_total",
		Help:      "Number of times the listener re-established its subscription.",
	})
)

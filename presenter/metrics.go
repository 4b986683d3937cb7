package presenter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "presenter",
		Name:      "websocket_clients",
		Help:      "Connected WebSocket clients.",
	})
	BroadcastMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "presenter",
		Name:      "broadcast_messages_total",
		Help:      "Messages queued to WebSocket clients per subscription key.",
	}, []string{"key"})
)

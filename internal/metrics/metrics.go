// Package metrics provides Prometheus metrics for the Suq API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncActionsTotal tracks processed sync actions by type and outcome.
	SyncActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "suq",
			Subsystem: "sync",
			Name:      "actions_total",
			Help:      "Total number of sync actions by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// SyncConflictsTotal tracks conflicts rejected by the resolver.
	SyncConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "suq",
			Subsystem: "sync",
			Name:      "conflicts_total",
			Help:      "Total number of sync conflicts by kind",
		},
		[]string{"kind"},
	)

	// SyncPullChanges observes the number of changes returned per pull.
	SyncPullChanges = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "suq",
			Subsystem: "sync",
			Name:      "pull_changes",
			Help:      "Number of changes returned per pull request",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// WSConnections tracks live websocket connections.
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "suq",
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Number of live websocket connections",
		},
	)

	// EventsPublishedTotal tracks outbox events handed to the hub.
	EventsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "suq",
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Total number of sync events published to the hub",
		},
	)

	// BroadcastDroppedTotal tracks frames dropped due to slow or dead connections.
	BroadcastDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "suq",
			Subsystem: "realtime",
			Name:      "broadcast_dropped_total",
			Help:      "Total number of frames dropped on broadcast",
		},
	)
)

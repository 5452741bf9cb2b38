package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scenenodes_commands_enqueued_total",
		Help: "Total number of graph commands placed on the engine queue.",
	})

	CommandsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scenenodes_commands_dropped_total",
		Help: "Total number of graph commands rejected due to a full queue.",
	})

	CommandsWithdrawn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scenenodes_commands_withdrawn_total",
		Help: "Total number of queued graph commands withdrawn after their caller timed out.",
	})

	Rebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scenenodes_rebuilds_total",
		Help: "Total number of graph rebuilds, labelled by status (finished, cancelled).",
	}, []string{"status"})

	RebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scenenodes_rebuild_duration_ms",
		Help:    "Graph rebuild latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	RebuildSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scenenodes_rebuild_skipped_total",
		Help: "Objects left out of a rebuild, labelled by reason.",
	}, []string{"reason"})

	GraphNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scenenodes_graph_nodes",
		Help: "Nodes in the current graph, labelled by kind.",
	}, []string{"kind"})

	SyncEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scenenodes_sync_events_total",
		Help: "Link edits written back to the source model, labelled by op and result.",
	}, []string{"op", "result"})

	LifecycleEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scenenodes_lifecycle_events_total",
		Help: "Node duplications, removals and reindexes, labelled by event and status.",
	}, []string{"event", "status"})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scenenodes_queue_utilization_ratio",
		Help: "Current command queue utilization (0–1).",
	})
)

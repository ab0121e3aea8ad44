// Package metrics holds the Prometheus collectors of the clearing house.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clearing"

// ============ Matching ============

// OrdersTotal counts submissions by instrument and final order status.
var OrdersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "matching",
		Name:      "orders_total",
		Help:      "Orders processed by the matching engine",
	},
	[]string{"instrument", "status"},
)

// TradesTotal counts executed trades.
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "matching",
		Name:      "trades_total",
		Help:      "Trades executed by the matching engine",
	},
	[]string{"instrument"},
)

// MatchLatency is the time an order spends inside its instrument worker.
var MatchLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "matching",
		Name:      "match_latency_ms",
		Help:      "Time to match one order in milliseconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
	[]string{"instrument"},
)

// QueueDepth is the number of commands waiting on an instrument worker.
var QueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "matching",
		Name:      "queue_depth",
		Help:      "Commands queued per instrument",
	},
	[]string{"instrument"},
)

// IntakeTotal counts order intake messages by outcome.
var IntakeTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "intake",
		Name:      "messages_total",
		Help:      "Order intake messages handled by the pipeline",
	},
	[]string{"result"}, // processed, rejected, malformed, replayed, failed
)

// ============ Novation and netting ============

// ExposuresTotal counts recorded exposures by kind.
var ExposuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "novation",
		Name:      "exposures_total",
		Help:      "Novated exposures recorded",
	},
	[]string{"kind"},
)

// CyclesTotal counts netting cycle closures by result.
var CyclesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "netting",
		Name:      "cycles_total",
		Help:      "Netting cycle closures",
	},
	[]string{"result"}, // closed, halted
)

// ============ Margin ============

// RevaluationDuration measures one member revaluation.
var RevaluationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "margin",
		Name:      "revaluation_duration_ms",
		Help:      "Time to revalue one margin account in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 1000},
	},
)

// MarginCallsTotal counts margin call transitions.
var MarginCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "margin",
		Name:      "calls_total",
		Help:      "Margin call transitions",
	},
	[]string{"status"}, // open, cured, defaulted
)

// VersionConflictsTotal counts optimistic-lock retries.
var VersionConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "version_conflicts_total",
		Help:      "Optimistic version conflicts that triggered a retry",
	},
	[]string{"entity"},
)

// ============ Settlement ============

// SettlementsTotal counts finished settlements by outcome.
var SettlementsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "settlements_total",
		Help:      "DvP settlements by outcome",
	},
	[]string{"result"}, // completed, rolled_back, commit_incomplete, release_incomplete, requeue_incomplete
)

// CollaboratorCalls counts external calls by collaborator, operation and result.
var CollaboratorCalls = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "collaborator_calls_total",
		Help:      "Calls to the warehouse and payment rail",
	},
	[]string{"collaborator", "operation", "result"},
)

// ============ Default management ============

// DefaultsTotal counts declared member defaults.
var DefaultsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "default",
		Name:      "declared_total",
		Help:      "Member defaults declared",
	},
)

// UnrecoveredLoss is the running sum of losses the waterfall could not cover.
var UnrecoveredLoss = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "default",
		Name:      "unrecovered_loss_total",
		Help:      "Loss left after every waterfall layer",
	},
	[]string{"currency"},
)

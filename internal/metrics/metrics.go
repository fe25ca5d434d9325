// Package metrics holds the Prometheus collectors shared by the ledger
// writers and the live feed. They register on the default registry, which
// the router exposes at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger ─────────────────────────────────────────────────────────────────

// LedgerWrites counts writer invocations by operation and outcome
// (ok, rejected, error).
var LedgerWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "finance",
	Subsystem: "ledger",
	Name:      "writes_total",
	Help:      "Total ledger writer invocations by operation and result.",
}, []string{"op", "result"})

// LedgerRetries counts transaction retries after a version conflict or a
// busy database.
var LedgerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "finance",
	Subsystem: "ledger",
	Name:      "retries_total",
	Help:      "Total ledger transaction retries by operation.",
}, []string{"op"})

// LedgerWriteSeconds tracks writer latency including retries.
var LedgerWriteSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "finance",
	Subsystem: "ledger",
	Name:      "write_seconds",
	Help:      "Ledger writer latency in seconds.",
	Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
}, []string{"op"})

// ─── Feed ───────────────────────────────────────────────────────────────────

// FeedSubscribers tracks currently connected live feed subscribers.
var FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "finance",
	Subsystem: "feed",
	Name:      "subscribers",
	Help:      "Number of connected live feed subscribers.",
})

// FeedDropped counts events dropped because a subscriber was too slow.
var FeedDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "finance",
	Subsystem: "feed",
	Name:      "dropped_events_total",
	Help:      "Total feed events dropped for slow subscribers.",
})

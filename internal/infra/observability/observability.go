// Package observability declares the Prometheus metrics for the
// verification backend: chain-sync outcomes, ledger submissions, and
// event-feed activity. Metrics are registered via promauto and served
// on /metrics when enabled in the daemon config.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Chain-Sync Metrics ─────────────────────────────────────────────────────

// ReconcileTotal counts reconciliation attempts by final outcome
// (synced, pending, partial, failed, none).
var ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "axios",
	Subsystem: "chainsync",
	Name:      "reconcile_total",
	Help:      "Total reconciliation attempts by outcome.",
}, []string{"outcome"})

// ChainSubmissions counts ledger submissions by operation (log, verify).
var ChainSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "axios",
	Subsystem: "chainsync",
	Name:      "chain_submissions_total",
	Help:      "Total ledger transaction submissions by operation.",
}, []string{"op"})

// ConfirmWait tracks how long confirmed transactions took to confirm.
var ConfirmWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "axios",
	Subsystem: "chainsync",
	Name:      "confirm_wait_seconds",
	Help:      "Time spent waiting for ledger confirmations.",
	Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
}, []string{"op"})

// RecoveredLinkages counts chain IDs recovered by the reconciliation
// pass for actions left behind by a partial sync.
var RecoveredLinkages = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "axios",
	Subsystem: "chainsync",
	Name:      "recovered_linkages_total",
	Help:      "Total chain IDs recovered from the ledger for unlinked actions.",
})

// ─── Event Feed Metrics ─────────────────────────────────────────────────────

// FeedEventsObserved counts decoded ledger events by kind.
var FeedEventsObserved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "axios",
	Subsystem: "feed",
	Name:      "events_observed_total",
	Help:      "Total ledger events observed by the aggregator.",
}, []string{"kind"})

// FeedEventsDropped counts events dropped as duplicates or undecodable.
var FeedEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "axios",
	Subsystem: "feed",
	Name:      "events_dropped_total",
	Help:      "Total events dropped by the aggregator (duplicate, decode).",
}, []string{"reason"})

// FeedReconnects counts stream resubscriptions after a disconnect.
var FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "axios",
	Subsystem: "feed",
	Name:      "reconnects_total",
	Help:      "Total event stream resubscriptions.",
})

// FeedSubscribers tracks currently connected push subscribers.
var FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "axios",
	Subsystem: "feed",
	Name:      "subscribers",
	Help:      "Currently connected live-feed subscribers.",
})

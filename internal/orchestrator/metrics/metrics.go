package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsEnqueued      prometheus.Counter
	EventsDropped       prometheus.Counter
	EventsDeduped       prometheus.Counter
	EventsRejected      prometheus.Counter
	FullSyncs           prometheus.Counter
	PartialSyncs        prometheus.Counter
	SyncFailures        prometheus.Counter
	SyncRetries         prometheus.Counter
	FreshnessViolations prometheus.Counter
	SyncDuration        prometheus.Histogram
	QueueDepth          prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		EventsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_orchestrator_events_enqueued_total",
			Help: "Total number of events accepted into the sync queue",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_orchestrator_events_dropped_total",
			Help: "Total number of oldest events dropped on queue overflow",
		}),
		EventsDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_orchestrator_events_deduped_total",
			Help: "Total number of events discarded by the id dedup window",
		}),
		EventsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_orchestrator_events_rejected_total",
			Help: "Total number of events rejected at intake",
		}),
		FullSyncs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_orchestrator_full_syncs_total",
			Help: "Total number of full (all-source) user syncs",
		}),
		PartialSyncs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_orchestrator_partial_syncs_total",
			Help: "Total number of delta-only user syncs",
		}),
		SyncFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_orchestrator_sync_failures_total",
			Help: "Total number of user syncs dropped after retry exhaustion",
		}),
		SyncRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_orchestrator_sync_retries_total",
			Help: "Total number of user sync retry attempts",
		}),
		FreshnessViolations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_orchestrator_freshness_violations_total",
			Help: "Total number of user syncs exceeding the freshness budget",
		}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dna_orchestrator_sync_duration_seconds",
			Help:    "Per-user sync duration",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dna_orchestrator_queue_depth",
			Help: "Events currently waiting in the sync queue",
		}),
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Hits          prometheus.Counter
	Probes        prometheus.Counter
	FullFetches   prometheus.Counter
	Fallbacks     prometheus.Counter
	Discards      prometheus.Counter
	Collapsed     prometheus.Counter
	Rollbacks     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Hits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_readcache_hits_total",
			Help: "Total number of reads served from a fresh cache entry",
		}),
		Probes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_readcache_version_probes_total",
			Help: "Total number of server version probes",
		}),
		FullFetches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_readcache_full_fetches_total",
			Help: "Total number of full profile fetches after a version gap",
		}),
		Fallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_readcache_fallbacks_total",
			Help: "Total number of reads served from local cache or defaults after a failure",
		}),
		Discards: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_readcache_offline_discards_total",
			Help: "Total number of entries discarded past the offline horizon",
		}),
		Collapsed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_readcache_collapsed_syncs_total",
			Help: "Total number of syncs collapsed into an in-flight call",
		}),
		Rollbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_readcache_optimistic_rollbacks_total",
			Help: "Total number of optimistic updates rolled back",
		}),
	}
}

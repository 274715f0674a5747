package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Creates          prometheus.Counter
	Updates          prometheus.Counter
	Deletes          prometheus.Counter
	ChangeRecords    *prometheus.CounterVec
	VersionConflicts prometheus.Counter
	StoreGuardTrips  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Creates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_profile_creates_total",
			Help: "Total number of profiles created",
		}),
		Updates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_profile_updates_total",
			Help: "Total number of committed profile mutations",
		}),
		Deletes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_profile_deletes_total",
			Help: "Total number of confirmed profile erasures",
		}),
		ChangeRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dna_profile_change_records_total",
			Help: "Total number of change records written, by field",
		}, []string{"field"}),
		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_profile_version_conflicts_total",
			Help: "Total number of compare-and-swap retries on profile writes",
		}),
		StoreGuardTrips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_profile_store_guard_trips_total",
			Help: "Total number of writes refused by the store-level XP guard",
		}),
	}
}

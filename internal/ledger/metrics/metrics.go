package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DepositsAwarded   prometheus.Counter
	DepositsRejected  *prometheus.CounterVec
	CapClippedTotal   prometheus.Counter
	QuarantineBlocks  prometheus.Counter
	MonotonicityTrips prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		DepositsAwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_ledger_deposits_awarded_total",
			Help: "Total number of XP deposits committed to the ledger",
		}),
		DepositsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dna_ledger_deposits_rejected_total",
			Help: "Total number of XP deposits rejected, by reason",
		}, []string{"reason"}),
		CapClippedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_ledger_cap_clipped_total",
			Help: "Total number of deposits clipped by the daily cap",
		}),
		QuarantineBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_ledger_quarantine_blocks_total",
			Help: "Total number of deposits blocked by source quarantine",
		}),
		MonotonicityTrips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dna_ledger_monotonicity_trips_total",
			Help: "Total number of XP decrement attempts caught by the guard",
		}),
	}
}

func (m *Metrics) IncrementAwarded() {
	m.DepositsAwarded.Inc()
}

func (m *Metrics) IncrementRejected(reason string) {
	m.DepositsRejected.WithLabelValues(reason).Inc()
}

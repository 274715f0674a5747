// Package skill computes the 1-10 skill tier from weighted multi-source
// scores. Scoring functions are pure domain logic - no I/O, no side
// effects; damping state lives in the Engine.
package skill

import "identity-dna/internal/domain"

// Component weights of the composite.
const (
	weightTraining = 0.40
	weightArcade   = 0.35
	weightBankroll = 0.25
)

// tierThresholds maps tier -> minimum normalized score. The score scale
// runs 0-4000.
var tierThresholds = [...]float64{
	1:  0,
	2:  100,
	3:  250,
	4:  500,
	5:  800,
	6:  1200,
	7:  1700,
	8:  2300,
	9:  3000,
	10: 4000,
}

// TrainingScore collapses the TRAINING bundle to 0-100.
func TrainingScore(s domain.TrainingStats) float64 {
	evScore := clamp(100-10*s.EVLossAvg, 0, 100)
	return s.Accuracy*0.30 +
		evScore*0.25 +
		s.GTOCompliance*0.20 +
		min100(float64(s.SessionsCompleted))*0.15 +
		min100(s.LeakReduction)*0.10
}

// ArcadeScore collapses the ARCADE bundle to 0-100.
func ArcadeScore(s domain.ArcadeStats) float64 {
	return s.WinRate*0.30 +
		min100(2*float64(s.StreakMax))*0.20 +
		min100(float64(s.TieredWins)/10)*0.25 +
		s.Clutch*0.15 +
		s.Consistency*0.10
}

// BankrollScore collapses the BANKROLL bundle to 0-100.
func BankrollScore(s domain.BankrollStats) float64 {
	return clamp(s.ROI, 0, 100)*0.35 +
		s.Discipline*0.30 +
		s.Recovery*0.20 +
		s.RiskMgmt*0.15
}

// Score computes the normalized 0-4000 composite. Degraded bundles
// contribute zero to their component, which keeps outage scores
// predictable instead of propagating stale values.
func Score(set domain.BundleSet) float64 {
	var composite float64
	if !set.TrainingDegraded {
		composite += weightTraining * TrainingScore(set.Training)
	}
	if !set.ArcadeDegraded {
		composite += weightArcade * ArcadeScore(set.Arcade)
	}
	if !set.BankrollDegraded {
		composite += weightBankroll * BankrollScore(set.Bankroll)
	}
	return clamp(40*composite, 0, 4000)
}

// TierForScore maps a 0-4000 score onto the tier ladder.
func TierForScore(score float64) int {
	tier := 1
	for t := 2; t <= 10; t++ {
		if score >= tierThresholds[t] {
			tier = t
		}
	}
	return tier
}

// TierFromPercent is the fallback mapping used only when every source
// bundle is degraded: a flat 0-100 percentage to tier shortcut.
func TierFromPercent(percent float64) int {
	tier := 1 + int(clamp(percent, 0, 100)/10)
	if tier > 10 {
		tier = 10
	}
	return tier
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min100(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}

package domain

// Stat bundles returned by the source gateway. Shapes mirror the
// upstream JSON responses; missing sources contribute a degraded
// neutral bundle, never stale values.

// TrainingStats is the TRAINING source bundle.
type TrainingStats struct {
	Accuracy          float64 `json:"accuracy"`           // 0-100
	EVLossAvg         float64 `json:"ev_loss_avg"`        // big blinds per 100
	GTOCompliance     float64 `json:"gto_compliance"`     // 0-100
	SessionsCompleted int     `json:"sessions_completed"`
	LeakReduction     float64 `json:"leak_reduction"` // 0-100
}

// ArcadeStats is the ARCADE source bundle.
type ArcadeStats struct {
	WinRate     float64 `json:"win_rate"` // 0-100
	StreakMax   int     `json:"streak_max"`
	TieredWins  int     `json:"tiered_wins"`
	Clutch      float64 `json:"clutch"`      // 0-100
	Consistency float64 `json:"consistency"` // 0-100
}

// BankrollStats is the BANKROLL source bundle.
type BankrollStats struct {
	ROI        float64 `json:"roi"`        // percent
	Discipline float64 `json:"discipline"` // 0-100
	Recovery   float64 `json:"recovery"`   // 0-100
	RiskMgmt   float64 `json:"risk_mgmt"`  // 0-100
}

// SocialStats is the SOCIAL source bundle feeding the trust engine.
type SocialStats struct {
	PositiveReviews      int  `json:"positive_reviews"`
	NegativeReviews      int  `json:"negative_reviews"`
	GeoVerified          bool `json:"geo_verified"`
	ProfileComplete      bool `json:"profile_complete"`
	TenureMonths         int  `json:"tenure_months"`
	ActiveMonths         int  `json:"active_months"`
	TournamentsCompleted int  `json:"tournaments_completed"`
	HandsShared          int  `json:"hands_shared"`
	HelpfulUpvotes       int  `json:"helpful_upvotes"`
	SubstantiatedReports int  `json:"substantiated_reports"`
	DisputedTxns         int  `json:"disputed_transactions"`
	NoShows              int  `json:"no_shows"`
	SpamFlags            int  `json:"spam_flags"`
	DaysSinceLastActive  int  `json:"days_since_last_active"`
}

// BundleSet groups one read of every source for a user. The Degraded
// flags mark bundles served from the neutral fallback.
type BundleSet struct {
	Training         TrainingStats
	Arcade           ArcadeStats
	Bankroll         BankrollStats
	Social           SocialStats
	TrainingDegraded bool
	ArcadeDegraded   bool
	BankrollDegraded bool
	SocialDegraded   bool
}

// AllDegraded reports whether no source produced a live bundle. The
// skill engine falls back to the percentage ladder in that case.
func (b BundleSet) AllDegraded() bool {
	return b.TrainingDegraded && b.ArcadeDegraded && b.BankrollDegraded && b.SocialDegraded
}

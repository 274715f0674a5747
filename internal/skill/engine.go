package skill

import (
	"log/slog"
	"sync"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
)

// ComputedVia records which scoring path produced a commit, so audits
// can tell the score ladder from the percentage fallback.
type ComputedVia string

const (
	ViaLadder  ComputedVia = "ladder"
	ViaPercent ComputedVia = "percent"
)

// Result reports one evaluation.
type Result struct {
	CommittedTier int
	ComputedTier  int
	Score         float64
	Via           ComputedVia
	Changed       bool
}

// Engine evaluates bundles into tier decisions with per-user damping.
// Damping history is deliberately in memory only: after a restart the
// engine holds the current tier until five fresh samples accrue.
type Engine struct {
	logger *slog.Logger

	mu      sync.Mutex
	windows map[id.UserID]*window
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine constructs a skill engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:  slog.Default(),
		windows: make(map[id.UserID]*window),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores the bundle set, records the computed tier in the
// user's damping window, and decides the committed tier. When every
// bundle is degraded the percentage fallback maps the current tier's
// floor back onto the ladder, effectively holding position.
func (e *Engine) Evaluate(userID id.UserID, currentTier int, set domain.BundleSet) Result {
	via := ViaLadder
	var score float64
	var computed int

	if set.AllDegraded() {
		via = ViaPercent
		computed = TierFromPercent(float64((currentTier - 1) * 10))
		score = 0
	} else {
		score = Score(set)
		computed = TierForScore(score)
	}

	e.mu.Lock()
	w, ok := e.windows[userID]
	if !ok {
		w = &window{}
		e.windows[userID] = w
	}
	w.observe(computed)
	committed := w.decide(currentTier, computed)
	e.mu.Unlock()

	if committed != currentTier {
		e.logger.Info("skill tier change committed",
			"user_id", userID,
			"old_tier", currentTier,
			"new_tier", committed,
			"score", score,
			"via", via,
		)
	}

	return Result{
		CommittedTier: committed,
		ComputedTier:  computed,
		Score:         score,
		Via:           via,
		Changed:       committed != currentTier,
	}
}

// Forget drops a user's damping history, used after erasure.
func (e *Engine) Forget(userID id.UserID) {
	e.mu.Lock()
	delete(e.windows, userID)
	e.mu.Unlock()
}

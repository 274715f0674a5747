package skill

// windowSize is the bounded per-user history of computed tiers that
// gates tier changes.
const windowSize = 5

// window holds the last computed tiers, oldest first.
type window struct {
	tiers []int
}

func (w *window) observe(tier int) {
	w.tiers = append(w.tiers, tier)
	if len(w.tiers) > windowSize {
		w.tiers = w.tiers[len(w.tiers)-windowSize:]
	}
}

// decide applies the damping rule: a change from current commits only
// when at least 3 of the last 5 computed tiers agree with its
// direction. A partial window always holds the current tier, which is
// what makes restarts conservative.
func (w *window) decide(current, computed int) int {
	if computed == current {
		return current
	}
	if len(w.tiers) < windowSize {
		return current
	}

	agree := 0
	for _, t := range w.tiers {
		if computed > current && t >= computed {
			agree++
		}
		if computed < current && t <= computed {
			agree++
		}
	}
	if agree >= 3 {
		return computed
	}
	return current
}

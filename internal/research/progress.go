package research

import (
	"time"
)

// stagnationLimit is the number of consecutive non-improving iterations
// tolerated before the tracker forces a stop.
const stagnationLimit = 3

// ProgressTracker detects stagnation across loop iterations by watching the
// facet coverage count.
type ProgressTracker struct {
	lastCoverage     int
	WithoutProgress  int
	everCoveredFacet bool
	boosted          bool
}

// ProgressUpdate is the tracker's verdict for one iteration.
type ProgressUpdate struct {
	Progressed                bool
	Stop                      bool
	IterationsWithoutProgress int
}

// Update compares the current coverage count against the previous iteration.
func (t *ProgressTracker) Update(coverageCount int) ProgressUpdate {
	progressed := coverageCount > t.lastCoverage
	if progressed {
		t.WithoutProgress = 0
		t.everCoveredFacet = true
	} else {
		t.WithoutProgress++
	}
	t.lastCoverage = coverageCount

	return ProgressUpdate{
		Progressed:                progressed,
		Stop:                      t.WithoutProgress >= stagnationLimit,
		IterationsWithoutProgress: t.WithoutProgress,
	}
}

// EverCovered reports whether any facet has ever been covered this run.
func (t *ProgressTracker) EverCovered() bool { return t.everCoveredFacet }

// ShouldStopLoop is the early-termination policy: true when the budget is
// depleted; elapsed time passed 85% of the time budget; required facets are
// covered with domain diversity; the run is a dead end (many passages, zero
// coverage); or time is nearly up with decent coverage.
func ShouldStopLoop(state *AgentState, requiredCovered bool, coverageRatio float64, everCovered bool) bool {
	if state.Budget.IsDepleted() {
		return true
	}
	frac := state.Budget.TimeFractionUsed()
	if frac > 0.85 {
		return true
	}
	if requiredCovered && HasDomainDiversity(state.Passages, 2) {
		return true
	}
	// Dead-end escape hatch: evidence keeps piling up but covers nothing.
	if len(state.Passages) >= 15 && !everCovered {
		return true
	}
	if frac > 0.80 && coverageRatio >= 0.6 {
		return true
	}
	return false
}

// MaybeFreshnessBoost returns one extra recency-scoped SEARCH action when a
// time-sensitive question has only stale (or undated) evidence and search
// budget remains. Returns nil when no boost is warranted.
func MaybeFreshnessBoost(state *AgentState, now time.Time) *Action {
	if !state.Question.TimeSensitive {
		return nil
	}
	if state.Budget.Searches <= 0 {
		return nil
	}
	if len(state.Passages) > 0 && !AllEvidenceStale(state.Passages, now) {
		return nil
	}

	query := state.Question.Text + " latest"
	if state.AlreadySearched(query) {
		query = state.Question.Text + " news this week"
		if state.AlreadySearched(query) {
			return nil
		}
	}
	return &Action{
		Type:      ActionSearch,
		Query:     query,
		K:         6,
		TimeRange: "month",
		Thought:   "evidence is stale for a time-sensitive question",
	}
}

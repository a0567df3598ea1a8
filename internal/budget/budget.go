// Package budget tracks the resource envelope constraining one research run:
// wall-clock time, search calls, fetch calls and a token allowance.
package budget

import (
	"fmt"
	"time"
)

// Defaults applied when the caller supplies no overrides.
const (
	DefaultTimeMs   = 25000
	DefaultSearches = 4
	DefaultFetches  = 12
	DefaultTokens   = 24000
)

// Budget is the per-run resource envelope. Searches and Fetches are
// monotonically non-increasing; the loop checks depletion before consuming,
// so neither counter ever goes negative.
type Budget struct {
	TimeMs    int64     `json:"time_ms"`
	Searches  int       `json:"searches"`
	Fetches   int       `json:"fetches"`
	Tokens    int       `json:"tokens"`
	StartedAt time.Time `json:"started_at"`
}

// Overrides are caller-supplied replacements for individual defaults.
// Zero values mean "use the default".
type Overrides struct {
	TimeMs   int64
	Searches int
	Fetches  int
	Tokens   int
}

// New builds a budget from defaults plus overrides and stamps the start time.
func New(o Overrides) Budget {
	b := Budget{
		TimeMs:    DefaultTimeMs,
		Searches:  DefaultSearches,
		Fetches:   DefaultFetches,
		Tokens:    DefaultTokens,
		StartedAt: time.Now(),
	}
	if o.TimeMs > 0 {
		b.TimeMs = o.TimeMs
	}
	if o.Searches > 0 {
		b.Searches = o.Searches
	}
	if o.Fetches > 0 {
		b.Fetches = o.Fetches
	}
	if o.Tokens > 0 {
		b.Tokens = o.Tokens
	}
	return b
}

// Elapsed returns wall-clock time since the run started.
func (b Budget) Elapsed() time.Duration {
	return time.Since(b.StartedAt)
}

// ElapsedMs returns elapsed milliseconds since the run started.
func (b Budget) ElapsedMs() int64 {
	return b.Elapsed().Milliseconds()
}

// Deadline returns the authoritative wall-clock deadline for the run. Any
// in-flight provider call past it is abandoned and treated as a failed action.
func (b Budget) Deadline() time.Time {
	return b.StartedAt.Add(time.Duration(b.TimeMs) * time.Millisecond)
}

// IsDepleted reports whether the run must stop acquiring evidence: elapsed
// time has reached the time budget, or both action counters are spent.
func (b Budget) IsDepleted() bool {
	if b.ElapsedMs() >= b.TimeMs {
		return true
	}
	return b.Searches <= 0 && b.Fetches <= 0
}

// TimeFractionUsed returns elapsed/budget as a ratio, used by the
// early-termination policy's 80%/85% gates.
func (b Budget) TimeFractionUsed() float64 {
	if b.TimeMs <= 0 {
		return 1
	}
	return float64(b.ElapsedMs()) / float64(b.TimeMs)
}

// ConsumeSearch decrements the search counter. Returns false without
// mutating when no searches remain.
func (b *Budget) ConsumeSearch() bool {
	if b.Searches <= 0 {
		return false
	}
	b.Searches--
	return true
}

// ConsumeFetch decrements the fetch counter. Returns false without mutating
// when no fetches remain.
func (b *Budget) ConsumeFetch() bool {
	if b.Fetches <= 0 {
		return false
	}
	b.Fetches--
	return true
}

// Summary renders the remaining budget for planner prompts.
func (b Budget) Summary() string {
	remainMs := b.TimeMs - b.ElapsedMs()
	if remainMs < 0 {
		remainMs = 0
	}
	return fmt.Sprintf("time remaining %dms, searches %d, fetches %d, tokens %d",
		remainMs, b.Searches, b.Fetches, b.Tokens)
}

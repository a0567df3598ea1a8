package research

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/providers/search"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestLoop(responses []string, backend *fakeSearchBackend) *Loop {
	return NewLoop(newTestPlanner(responses, nil), newTestExecutor(backend), zap.NewNop())
}

func TestLoopStopsOnceRequiredFacetsCovered(t *testing.T) {
	// Two domains both evidencing the only required facet: the first
	// iteration should cover it and the termination policy should stop.
	backend := &fakeSearchBackend{results: []search.Result{
		{URL: "https://a.com/paris", Title: "Paris capital France", Snippet: "Paris is the capital of France"},
		{URL: "https://b.com/paris", Title: "France capital", Snippet: "the capital city Paris of France"},
	}}
	loop := newTestLoop([]string{
		`{"thought": "gather evidence", "action": {"type": "SEARCH", "query": "capital france", "k": 5}}`,
	}, backend)

	state := newTestState("what is the capital of France")
	state.Facets = []Facet{{Name: "capital France", Required: true}}

	loop.Run(context.Background(), state)

	assert.Equal(t, 1, backend.calls, "coverage plus domain diversity stops after one search")
	assert.True(t, AllRequiredCovered(state.Facets))
	require.NotEmpty(t, state.Passages)
}

func TestLoopStopsOnStagnation(t *testing.T) {
	// Searches succeed but never cover the facet; the tracker must cut the
	// loop off after three non-improving iterations instead of burning the
	// whole budget.
	backend := &fakeSearchBackend{results: []search.Result{
		{URL: "https://a.com/x", Title: "Unrelated", Snippet: "nothing useful here"},
	}}
	loop := newTestLoop([]string{
		`{"thought": "", "action": {"type": "SEARCH", "query": "quantum entanglement basics", "k": 5}}`,
		`{"thought": "", "action": {"type": "SEARCH", "query": "quantum entanglement experiments", "k": 5}}`,
		`{"thought": "", "action": {"type": "SEARCH", "query": "quantum entanglement applications", "k": 5}}`,
		`{"thought": "", "action": {"type": "SEARCH", "query": "quantum entanglement history", "k": 5}}`,
	}, backend)

	state := newTestState("explain quantum entanglement")
	state.Budget.Searches = 8
	state.Facets = []Facet{{Name: "zzz unmatchable facet keywords", Required: true}}

	loop.Run(context.Background(), state)

	assert.LessOrEqual(t, backend.calls, 3, "stagnation stops the loop before the search budget runs out")
	assert.GreaterOrEqual(t, state.Budget.Searches, 5)
}

func TestLoopFreshnessBoostFiresOnce(t *testing.T) {
	// Time-sensitive question with only undated evidence: every iteration
	// qualifies for the recency re-search, but it must spend just one
	// extra search for the whole run.
	backend := &fakeSearchBackend{results: []search.Result{
		{URL: "https://a.com/x", Title: "Unrelated", Snippet: "nothing useful here"},
	}}
	loop := newTestLoop([]string{
		`{"thought": "", "action": {"type": "SEARCH", "query": "fed rate decision coverage", "k": 5}}`,
		`{"thought": "", "action": {"type": "SEARCH", "query": "fed rate decision reaction", "k": 5}}`,
		`{"thought": "", "action": {"type": "SEARCH", "query": "fed rate decision analysis", "k": 5}}`,
	}, backend)

	state := newTestState("latest fed rate decision")
	state.Question.TimeSensitive = true
	state.Budget.Searches = 8
	state.Facets = []Facet{{Name: "zzz unmatchable facet keywords", Required: true}}

	loop.Run(context.Background(), state)

	boosts := 0
	for _, q := range state.SearchHistory {
		if strings.HasSuffix(q, " latest") || strings.HasSuffix(q, " news this week") {
			boosts++
		}
	}
	assert.Equal(t, 1, boosts, "recency re-search runs at most once per run")
}

func TestLoopHonorsCancelledContext(t *testing.T) {
	backend := &fakeSearchBackend{}
	loop := newTestLoop([]string{
		`{"thought": "", "action": {"type": "SEARCH", "query": "anything", "k": 5}}`,
	}, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := newTestState("q")
	loop.Run(ctx, state)

	assert.Zero(t, backend.calls, "no planning or execution after cancellation")
	assert.Empty(t, state.Passages)
}

func TestLoopDepletedBudgetConsolidates(t *testing.T) {
	// Budget already spent: the loop body never runs, but an oversized
	// passage set still gets consolidated before synthesis.
	backend := &fakeSearchBackend{}
	loop := newTestLoop([]string{
		`{"thought": "", "action": {"type": "SEARCH", "query": "anything", "k": 5}}`,
	}, backend)

	state := newTestState("broad question topic")
	state.Budget.Searches = 0
	state.Budget.Fetches = 0
	for i := 0; i < 14; i++ {
		state.Passages = append(state.Passages, Passage{
			ID:           PassageID(fmt.Sprintf("https://site%d.com/p", i), 0),
			URL:          fmt.Sprintf("https://site%d.com/p", i),
			Text:         "broad question topic detail",
			SourceDomain: fmt.Sprintf("site%d.com", i),
		})
	}

	loop.Run(context.Background(), state)

	assert.Zero(t, backend.calls)
	assert.Len(t, state.Passages, consolidateTarget)
	assert.Equal(t, 1, state.Metrics.Reranks)
}

func TestLoopRejectsPrematureStop(t *testing.T) {
	// The planner wants to STOP with the required facet uncovered; the loop
	// must refuse the clean exit and treat it as consolidation instead.
	backend := &fakeSearchBackend{}
	loop := newTestLoop([]string{
		`{"thought": "done", "action": {"type": "STOP"}}`,
	}, backend)

	state := newTestState("q")
	state.Facets = []Facet{{Name: "zzz unmatchable facet keywords", Required: true}}
	for i := 0; i < 4; i++ {
		state.Passages = append(state.Passages, Passage{
			ID:           PassageID(fmt.Sprintf("https://site%d.com/p", i), 0),
			URL:          fmt.Sprintf("https://site%d.com/p", i),
			Text:         "some evidence",
			SourceDomain: fmt.Sprintf("site%d.com", i),
		})
	}

	loop.Run(context.Background(), state)

	assert.False(t, AllRequiredCovered(state.Facets))
	assert.GreaterOrEqual(t, state.Metrics.Reranks, 1, "premature STOP downgraded to a rerank")
}

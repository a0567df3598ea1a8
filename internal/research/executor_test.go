package research

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/providers/rerank"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/search"
)

type fakeSearchBackend struct {
	results []search.Result
	calls   int
}

func (f *fakeSearchBackend) Name() string { return "fake" }

func (f *fakeSearchBackend) Search(ctx context.Context, query string, k int, tr search.TimeRange) ([]search.Result, error) {
	f.calls++
	return f.results, nil
}

func newTestExecutor(backend *fakeSearchBackend) *Executor {
	mgr := search.NewManager([]search.Provider{backend}, nil, 0, zap.NewNop())
	return NewExecutor(mgr, nil, rerank.New("", zap.NewNop()), zap.NewNop())
}

func TestExecuteSearchAddsPassages(t *testing.T) {
	backend := &fakeSearchBackend{results: []search.Result{
		{URL: "https://www.nature.com/articles/abc", Title: "Study results", Snippet: "findings on the topic"},
		{URL: "https://example.edu/paper", Title: "University paper", Snippet: "detailed analysis"},
	}}
	e := newTestExecutor(backend)
	state := newTestState("topic findings")

	e.Execute(context.Background(), state, Action{Type: ActionSearch, Query: "topic findings", K: 8})

	require.Len(t, state.Passages, 2)
	assert.Equal(t, 3, state.Budget.Searches, "one search consumed from the default of 4")
	assert.True(t, state.AlreadySearched("topic findings"))
	assert.Equal(t, "nature.com", state.Passages[0].SourceDomain)
}

func TestExecuteSearchFiltersBlockedURLs(t *testing.T) {
	backend := &fakeSearchBackend{results: []search.Result{
		{URL: "https://example.com/tag/widgets", Title: "Tag page", Snippet: "listing"},
		{URL: "https://www.youtube.com/watch?v=abc", Title: "Video", Snippet: "watch this"},
		{URL: "https://example.com/real-article", Title: "Article", Snippet: "content"},
	}}
	e := newTestExecutor(backend)
	state := newTestState("widgets")

	e.Execute(context.Background(), state, Action{Type: ActionSearch, Query: "widgets", K: 8})

	require.Len(t, state.Passages, 1)
	assert.Equal(t, "https://example.com/real-article", state.Passages[0].URL)
}

func TestExecuteSearchPerDomainCap(t *testing.T) {
	// A single authoritative domain dominating the results must be capped so
	// the evidence pool stays diverse.
	var results []search.Result
	for i := 0; i < 10; i++ {
		results = append(results, search.Result{
			URL:     fmt.Sprintf("https://blog.example.com/post-%d", i),
			Title:   fmt.Sprintf("Post %d", i),
			Snippet: "relevant snippet text",
		})
	}
	e := newTestExecutor(&fakeSearchBackend{results: results})
	state := newTestState("example posts")

	e.Execute(context.Background(), state, Action{Type: ActionSearch, Query: "example posts", K: 10})

	assert.Len(t, state.Passages, perDomainCap)
}

func TestExecuteSearchBudgetExhausted(t *testing.T) {
	backend := &fakeSearchBackend{results: []search.Result{
		{URL: "https://example.com/a", Title: "A", Snippet: "a"},
	}}
	e := newTestExecutor(backend)
	state := newTestState("q")
	state.Budget.Searches = 0

	e.Execute(context.Background(), state, Action{Type: ActionSearch, Query: "q", K: 8})

	assert.Empty(t, state.Passages)
	assert.Zero(t, backend.calls, "no provider call when the budget is spent")
	assert.Equal(t, 0, state.Budget.Searches, "counter never goes negative")
}

func TestExecuteSearchSkipsDuplicateURLs(t *testing.T) {
	backend := &fakeSearchBackend{results: []search.Result{
		{URL: "https://example.com/a", Title: "A", Snippet: "snippet"},
		{URL: "https://example.com/b", Title: "B", Snippet: "snippet"},
	}}
	e := newTestExecutor(backend)
	state := newTestState("q")
	state.Passages = append(state.Passages, Passage{
		ID: PassageID("https://example.com/a", 0), URL: "https://example.com/a", SourceDomain: "example.com",
	})

	e.Execute(context.Background(), state, Action{Type: ActionSearch, Query: "q", K: 8})

	assert.Len(t, state.Passages, 2, "existing URL not re-added")
}

func TestExecuteFetchBudgetExhausted(t *testing.T) {
	e := NewExecutor(nil, nil, nil, zap.NewNop())
	state := newTestState("q")
	state.Budget.Fetches = 0

	e.Execute(context.Background(), state, Action{Type: ActionFetch, URL: "https://example.com/page"})

	assert.Empty(t, state.Passages)
	assert.Equal(t, 0, state.Budget.Fetches)
}

func TestExecuteRerankReplacesPassages(t *testing.T) {
	e := NewExecutor(nil, nil, rerank.New("", zap.NewNop()), zap.NewNop())
	state := newTestState("solar panel efficiency")

	for i := 0; i < 8; i++ {
		state.Passages = append(state.Passages, Passage{
			ID:           PassageID(fmt.Sprintf("https://site%d.com/p", i), 0),
			URL:          fmt.Sprintf("https://site%d.com/p", i),
			Text:         "unrelated filler content",
			SourceDomain: fmt.Sprintf("site%d.com", i),
		})
	}
	state.Passages[5].Text = "solar panel efficiency improved this year"

	e.Execute(context.Background(), state, Action{Type: ActionRerank, TopN: 3})

	require.Len(t, state.Passages, 3, "rerank replaces the collection, not appends")
	assert.Contains(t, state.Passages[0].Text, "solar panel efficiency",
		"most relevant passage promoted to the front")
}

func TestExecuteRerankDomainCap(t *testing.T) {
	e := NewExecutor(nil, nil, rerank.New("", zap.NewNop()), zap.NewNop())
	state := newTestState("topic")
	for i := 0; i < 6; i++ {
		state.Passages = append(state.Passages, Passage{
			ID:           PassageID("https://one.com/p", i),
			URL:          "https://one.com/p",
			Text:         "topic detail",
			SourceDomain: "one.com",
		})
	}

	e.Execute(context.Background(), state, Action{Type: ActionRerank, TopN: 6})

	assert.Len(t, state.Passages, perDomainCap)
}

func TestExpandQuery(t *testing.T) {
	variants := expandQuery("stock price today", "")
	require.Len(t, variants, 2, "time-sensitive query gets a recency-scoped variant")
	assert.Equal(t, search.RangeAny, variants[0].timeRange)
	assert.Equal(t, search.RangeMonth, variants[1].timeRange)

	variants = expandQuery("history of rome", "")
	assert.Len(t, variants, 1)

	variants = expandQuery("stock price today", "week")
	assert.Len(t, variants, 1, "explicit range suppresses expansion")
}

func TestScoreResultsOrdering(t *testing.T) {
	scored := scoreResults([]search.Result{
		{URL: "https://randomblog.net/post", Title: "Post", Snippet: "short"},
		{URL: "https://www.cdc.gov/report", Title: "Report", Snippet: "an extensive government report with substantial snippet text covering the topic in depth"},
	})
	require.Len(t, scored, 2)
	assert.Equal(t, "https://www.cdc.gov/report", scored[0].result.URL,
		"authoritative domain with richer snippet ranks first")
}

func TestEnforceResultDiversity(t *testing.T) {
	var scored []scoredResult
	for i := 0; i < 5; i++ {
		scored = append(scored, scoredResult{result: search.Result{URL: "https://a.com/" + fmt.Sprint(i)}, score: 1.0 - float64(i)*0.1})
	}
	scored = append(scored, scoredResult{result: search.Result{URL: "https://b.com/x"}, score: 0.1})

	out := enforceResultDiversity(scored, 3, 10)
	require.Len(t, out, 4)
	assert.Equal(t, "https://b.com/x", out[3].result.URL)

	out = enforceResultDiversity(scored, 3, 2)
	assert.Len(t, out, 2, "overall target caps the output")
}

func TestParseResultDate(t *testing.T) {
	d := parseResultDate("2026-03-14")
	require.NotNil(t, d)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.March, d.Month())

	assert.Nil(t, parseResultDate(""))
}

package research

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Aiden-Hyun/deepanswer/internal/metrics"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/fetch"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/rerank"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/search"
)

// Search-result retention parameters.
const (
	maxScoredResults  = 35 // top results kept before the diversity pass
	perDomainCap      = 3  // max results per source domain
	diversityTarget   = 24 // total results retained after the diversity pass
	consolidateTarget = 10 // passages kept by the consolidating rerank
)

// Executor performs exactly one action against the providers and mutates
// the run state's passages, budget and metrics.
type Executor struct {
	search   *search.Manager
	fetcher  *fetch.Fetcher
	reranker *rerank.Reranker
	logger   *zap.Logger
}

// NewExecutor wires the executor to its providers.
func NewExecutor(s *search.Manager, f *fetch.Fetcher, r *rerank.Reranker, logger *zap.Logger) *Executor {
	return &Executor{search: s, fetcher: f, reranker: r, logger: logger}
}

// Execute dispatches one action. Provider failures are logged and swallowed:
// a failed action simply produces no new evidence and the loop continues.
func (e *Executor) Execute(ctx context.Context, state *AgentState, action Action) {
	metrics.ActionsExecuted.WithLabelValues(string(action.Type)).Inc()

	switch action.Type {
	case ActionSearch:
		e.executeSearch(ctx, state, action)
	case ActionFetch:
		e.executeFetch(ctx, state, action)
	case ActionRerank:
		e.executeRerank(ctx, state, action)
	case ActionStop:
		// Signals loop exit upstream; nothing to execute.
	}
}

func (e *Executor) executeSearch(ctx context.Context, state *AgentState, action Action) {
	if !state.Budget.ConsumeSearch() {
		e.logger.Info("Search budget exhausted, skipping SEARCH")
		return
	}
	state.Metrics.Searches++
	state.RecordSearch(action.Query)

	results := e.runSearchVariants(ctx, action)
	if len(results) == 0 {
		metrics.ActionFailures.WithLabelValues(string(ActionSearch)).Inc()
		e.logger.Warn("Search produced no results", zap.String("query", action.Query))
		return
	}

	filtered := results[:0]
	for _, r := range results {
		if !IsBlockedURL(r.URL) {
			filtered = append(filtered, r)
		}
	}

	scored := scoreResults(filtered)
	if len(scored) > maxScoredResults {
		scored = scored[:maxScoredResults]
	}
	diverse := enforceResultDiversity(scored, perDomainCap, diversityTarget)

	added := 0
	for _, sr := range diverse {
		if state.hasPassageURL(sr.result.URL) {
			continue
		}
		state.Passages = append(state.Passages, Passage{
			ID:            PassageID(sr.result.URL, 0),
			Text:          sr.result.Snippet,
			URL:           sr.result.URL,
			Title:         sr.result.Title,
			PublishedDate: parseResultDate(sr.result.Date),
			SourceDomain:  SourceDomain(sr.result.URL),
			Score:         sr.score,
		})
		added++
	}

	e.logger.Info("Search complete",
		zap.String("query", action.Query),
		zap.Int("raw_results", len(results)),
		zap.Int("passages_added", added),
	)
}

// runSearchVariants fans the expanded query variants out concurrently; each
// variant is read-only against an independent provider call. Results merge
// deterministically: dedup by URL, first variant then first position wins.
func (e *Executor) runSearchVariants(ctx context.Context, action Action) []search.Result {
	variants := expandQuery(action.Query, action.TimeRange)
	perVariant := make([][]search.Result, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for i, v := range variants {
		i, v := i, v
		g.Go(func() error {
			res, err := e.search.Search(gctx, v.query, action.K, v.timeRange)
			if err != nil {
				e.logger.Warn("Search variant failed",
					zap.String("query", v.query),
					zap.Error(err),
				)
				return nil // one failed variant must not cancel the others
			}
			mu.Lock()
			perVariant[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var merged []search.Result
	for _, batch := range perVariant {
		for _, r := range batch {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			merged = append(merged, r)
		}
	}
	return merged
}

type queryVariant struct {
	query     string
	timeRange search.TimeRange
}

// expandQuery produces the variant set for one SEARCH action: the query
// itself, plus a recency-scoped variant when no explicit range was given.
func expandQuery(query string, timeRange string) []queryVariant {
	tr := search.TimeRange(timeRange)
	variants := []queryVariant{{query: query, timeRange: tr}}
	if tr == search.RangeAny && IsTimeSensitive(query) {
		variants = append(variants, queryVariant{query: query, timeRange: search.RangeMonth})
	}
	return variants
}

type scoredResult struct {
	result search.Result
	score  float64
}

// scoreResults ranks raw hits by a weighted sum of domain authority,
// snippet length, technical-source bonus and recency bonus.
func scoreResults(results []search.Result) []scoredResult {
	scored := make([]scoredResult, 0, len(results))
	for _, r := range results {
		domain := SourceDomain(r.URL)

		score := 0.40 * DomainAuthority(domain)

		snippetLen := float64(len(r.Snippet)) / 300.0
		if snippetLen > 1 {
			snippetLen = 1
		}
		score += 0.20 * snippetLen

		if IsTechnicalSource(domain, r.Title, r.Snippet) {
			score += 0.20
		}
		score += 0.20 * recencyBonus(r)

		scored = append(scored, scoredResult{result: r, score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	return scored
}

func recencyBonus(r search.Result) float64 {
	text := strings.ToLower(r.Title + " " + r.Snippet + " " + r.Date)
	year := time.Now().Year()
	if strings.Contains(text, fmt.Sprintf("%d", year)) {
		return 1.0
	}
	if strings.Contains(text, fmt.Sprintf("%d", year-1)) {
		return 0.6
	}
	for _, kw := range []string{"hours ago", "days ago", "yesterday", "this week"} {
		if strings.Contains(text, kw) {
			return 1.0
		}
	}
	return 0.0
}

// enforceResultDiversity caps results per source domain while preserving
// score order, stopping at the overall target.
func enforceResultDiversity(scored []scoredResult, domainCap, target int) []scoredResult {
	perDomain := make(map[string]int)
	out := make([]scoredResult, 0, target)
	for _, sr := range scored {
		domain := SourceDomain(sr.result.URL)
		if perDomain[domain] >= domainCap {
			continue
		}
		perDomain[domain]++
		out = append(out, sr)
		if len(out) >= target {
			break
		}
	}
	return out
}

func parseResultDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "Jan 2, 2006", "January 2, 2006", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return fetch.ExtractPublishedDate(raw, "")
}

func (e *Executor) executeFetch(ctx context.Context, state *AgentState, action Action) {
	if !state.Budget.ConsumeFetch() {
		e.logger.Info("Fetch budget exhausted, skipping FETCH")
		return
	}
	state.Metrics.Fetches++

	fetchCtx, cancel := context.WithDeadline(ctx, state.Budget.Deadline())
	defer cancel()

	page, err := e.fetcher.Fetch(fetchCtx, action.URL)
	if err != nil {
		metrics.ActionFailures.WithLabelValues(string(ActionFetch)).Inc()
		e.logger.Warn("Fetch failed", zap.String("url", action.URL), zap.Error(err))
		return
	}

	published := fetch.ExtractPublishedDate(page.Text, action.URL)
	domain := SourceDomain(action.URL)

	chunks := ChunkText(page.Text)
	for i, chunk := range chunks {
		state.Passages = append(state.Passages, Passage{
			ID:            PassageID(action.URL, i),
			Text:          chunk,
			URL:           action.URL,
			Title:         page.Title,
			PublishedDate: published,
			SourceDomain:  domain,
		})
	}

	e.logger.Info("Fetch complete",
		zap.String("url", action.URL),
		zap.Int("chunks", len(chunks)),
		zap.Bool("dated", published != nil),
	)
}

func (e *Executor) executeRerank(ctx context.Context, state *AgentState, action Action) {
	if len(state.Passages) == 0 {
		return
	}
	state.Metrics.Reranks++

	topN := action.TopN
	if topN <= 0 {
		topN = consolidateTarget
	}

	docs := make([]string, len(state.Passages))
	for i, p := range state.Passages {
		docs[i] = p.Title + " " + p.Text
	}

	scored := e.reranker.Rerank(ctx, state.Question.Text, docs, len(docs))

	// Rebuild in relevance order with the per-domain cap, then truncate.
	// This REPLACES the passage collection.
	perDomain := make(map[string]int)
	replacement := make([]Passage, 0, topN)
	for _, sc := range scored {
		p := state.Passages[sc.Index]
		if perDomain[p.SourceDomain] >= perDomainCap {
			continue
		}
		perDomain[p.SourceDomain]++
		p.Score = sc.Score
		replacement = append(replacement, p)
		if len(replacement) >= topN {
			break
		}
	}

	e.logger.Info("Rerank complete",
		zap.Int("before", len(state.Passages)),
		zap.Int("after", len(replacement)),
	)
	state.Passages = replacement
}

func (s *AgentState) hasPassageURL(url string) bool {
	for _, p := range s.Passages {
		if p.URL == url {
			return true
		}
	}
	return false
}

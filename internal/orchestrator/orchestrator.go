// Package orchestrator is the top-level entry for one research run:
// cache lookup, state init, routing, the research loop, synthesis, and
// result caching.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/budget"
	"github.com/Aiden-Hyun/deepanswer/internal/cache"
	"github.com/Aiden-Hyun/deepanswer/internal/config"
	"github.com/Aiden-Hyun/deepanswer/internal/metrics"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/llm"
	"github.com/Aiden-Hyun/deepanswer/internal/research"
	"github.com/Aiden-Hyun/deepanswer/internal/router"
	"github.com/Aiden-Hyun/deepanswer/internal/synthesis"
)

// Options carry per-request overrides.
type Options struct {
	// ReasoningModel overrides the configured reasoning model.
	ReasoningModel string
	// SynthesisModel overrides the configured synthesis model.
	SynthesisModel string
	// Budget overrides individual budget defaults.
	Budget budget.Overrides
}

// Workflow wires the pipeline components for the lifetime of the process.
// Each Run gets its own AgentState; the workflow itself is safe for
// concurrent use. Tunables (budget defaults, cache TTLs) are read through
// the config watcher on every Run, so hot reloads apply to the next run.
type Workflow struct {
	cfg       *config.Watcher
	llm       *llm.Manager
	router    *router.Router
	facets    *research.FacetManager
	decompose *research.Decomposer
	loop      *research.Loop
	engine    *synthesis.Engine
	store     *cache.Store
	logger    *zap.Logger
}

// New assembles a workflow.
func New(
	cfg *config.Watcher,
	llmMgr *llm.Manager,
	rt *router.Router,
	facets *research.FacetManager,
	decompose *research.Decomposer,
	loop *research.Loop,
	engine *synthesis.Engine,
	store *cache.Store,
	logger *zap.Logger,
) *Workflow {
	return &Workflow{
		cfg:       cfg,
		llm:       llmMgr,
		router:    rt,
		facets:    facets,
		decompose: decompose,
		loop:      loop,
		engine:    engine,
		store:     store,
		logger:    logger,
	}
}

// Run answers one question end to end.
func (w *Workflow) Run(ctx context.Context, question string, opts Options) (*research.Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question must not be empty")
	}

	cfg := w.cfg.Current()
	reasoningModel := cfg.Models.Reasoning
	if opts.ReasoningModel != "" {
		reasoningModel = opts.ReasoningModel
	}
	synthesisModel := cfg.Models.Synthesis
	if opts.SynthesisModel != "" {
		synthesisModel = opts.SynthesisModel
	}

	b := budget.New(mergeBudget(cfg.Budget, opts.Budget))
	timeSensitive := research.IsTimeSensitive(question)
	key := cache.AnswerKey(cache.AnswerKeyParts{
		Question:       question,
		DayBucket:      cache.DayBucket(timeSensitive, time.Now()),
		ReasoningModel: reasoningModel,
		SynthesisModel: synthesisModel,
		Searches:       b.Searches,
		Fetches:        b.Fetches,
	})

	var cached research.Result
	if err := w.store.Get(ctx, cache.NamespaceAnswer, key, &cached); err == nil {
		w.logger.Info("Answer cache hit", zap.String("key", key[:12]))
		return &cached, nil
	} else if !errors.Is(err, cache.ErrNotFound) {
		// Cache I/O failure: the run can still proceed without the cache.
		w.logger.Warn("Answer cache lookup failed", zap.Error(err))
	}

	metrics.RunsStarted.Inc()
	start := time.Now()

	q := w.router.Classify(ctx, question)
	q.TimeSensitive = timeSensitive
	route := strings.ToLower(string(q.Type))

	w.logger.Info("Question routed",
		zap.String("question", truncate(question, 120)),
		zap.String("route", route),
		zap.Bool("time_sensitive", timeSensitive),
	)

	// Direct answers skip the loop entirely: zero searches consumed.
	if q.Type == research.DirectAnswer {
		result := &research.Result{FinalAnswerMarkdown: q.Answer}
		w.cacheResult(ctx, key, result)
		w.finish(route, "ok", start)
		return result, nil
	}

	b = router.ApplyRouteBudget(q.Type, b)
	state := research.NewAgentState(q, b)

	runCtx, cancel := context.WithDeadline(ctx, state.Budget.Deadline())
	defer cancel()

	state.Facets = w.facets.ExtractFacets(runCtx, question)
	state.DecomposedQueries = w.decompose.Decompose(runCtx, question)

	w.loop.Run(runCtx, state)

	answer, tokens, err := w.engine.Synthesize(ctx, question, state.Passages)
	if err != nil {
		w.logger.Warn("Synthesis failed, falling back to evidence summary", zap.Error(err))
		answer = fallbackAnswer(state)
	}
	metrics.TokensUsed.Observe(float64(tokens))

	result := synthesis.BuildResult(answer, state, buildTrace(state), time.Now())
	w.cacheResult(ctx, key, result)
	w.finish(route, "ok", start)
	return result, nil
}

// mergeBudget fills unset request overrides from the currently configured
// defaults.
func mergeBudget(defaults config.BudgetConfig, o budget.Overrides) budget.Overrides {
	if o.TimeMs == 0 {
		o.TimeMs = defaults.TimeMs
	}
	if o.Searches == 0 {
		o.Searches = defaults.Searches
	}
	if o.Fetches == 0 {
		o.Fetches = defaults.Fetches
	}
	if o.Tokens == 0 {
		o.Tokens = defaults.Tokens
	}
	return o
}

func (w *Workflow) cacheResult(ctx context.Context, key string, result *research.Result) {
	ttl := time.Duration(w.cfg.Current().Cache.AnswerTTLSeconds) * time.Second
	if err := w.store.Set(ctx, cache.NamespaceAnswer, key, result, ttl); err != nil {
		w.logger.Warn("Failed to cache answer", zap.Error(err))
	}
}

func (w *Workflow) finish(route, status string, start time.Time) {
	metrics.RunsCompleted.WithLabelValues(route, status).Inc()
	metrics.RunDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// fallbackAnswer renders the top evidence directly when every synthesis
// provider failed. Bullet points with sources, no invented prose.
func fallbackAnswer(state *research.AgentState) string {
	top := synthesis.SelectTopDiverse(state.Passages, 5)
	if len(top) == 0 {
		return "No evidence could be gathered for this question within the allotted budget."
	}
	var sb strings.Builder
	sb.WriteString("The synthesis step was unavailable; the strongest evidence found:\n\n")
	for _, p := range top {
		title := p.Title
		if title == "" {
			title = p.SourceDomain
		}
		sb.WriteString(fmt.Sprintf("- %s — [%s](%s)\n", truncate(p.Text, 250), title, p.URL))
	}
	return sb.String()
}

func buildTrace(state *research.AgentState) []string {
	trace := make([]string, 0, len(state.SearchHistory)+1)
	for _, q := range state.SearchHistory {
		trace = append(trace, "SEARCH "+q)
	}
	trace = append(trace, fmt.Sprintf("metrics: %d searches, %d fetches, %d reranks",
		state.Metrics.Searches, state.Metrics.Fetches, state.Metrics.Reranks))
	return trace
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/providers/llm"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/rerank"
)

// Planner asks the reasoning model for the next action given the current
// evidence state, then validates and repairs the proposal before execution.
type Planner struct {
	llm    *llm.Manager
	model  string
	logger *zap.Logger
}

// NewPlanner builds a planner using the reasoning model.
func NewPlanner(m *llm.Manager, model string, logger *zap.Logger) *Planner {
	return &Planner{llm: m, model: model, logger: logger}
}

const plannerSystemPrompt = `You are the action planner of a research loop. Given the evidence state, pick exactly one next action.

Return a JSON object, nothing else:
{"thought": "one sentence", "action": {"type": "SEARCH|FETCH|RERANK|STOP", "query": "...", "k": 8, "url": "...", "top_n": 10, "time_range": "day|week|month|year"}}

Action guidance:
- SEARCH when required facets lack evidence. Use a focused sub-query, never the full original question, and never repeat a past search.
- FETCH a specific promising URL from existing results when its snippet is thin.
- RERANK when there are many passages of mixed quality.
- STOP only when every required facet is covered by at least one source.`

// DecideAction performs one planning call and returns a validated action.
func (p *Planner) DecideAction(ctx context.Context, state *AgentState) Action {
	res, err := p.llm.Call(ctx, p.model, []llm.Message{
		{Role: llm.RoleSystem, Content: plannerSystemPrompt},
		{Role: llm.RoleUser, Content: buildPlannerContext(state)},
	}, llm.CallConfig{MaxTokens: 1024, Temperature: 0.2})
	if err != nil {
		p.logger.Warn("Planner call failed, using deterministic fallback", zap.Error(err))
		return fallbackAction(state)
	}

	action, err := ParsePlannerResponse(res.Text)
	if err != nil {
		p.logger.Warn("Planner output unparseable, using deterministic fallback",
			zap.Error(err),
			zap.String("raw", truncate(res.Text, 200)),
		)
		return fallbackAction(state)
	}

	return p.validate(action, state)
}

func buildPlannerContext(state *AgentState) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Question:\n%s\n\n", state.Question.Text))
	sb.WriteString(fmt.Sprintf("## Remaining budget:\n%s\n\n", state.Budget.Summary()))
	sb.WriteString(fmt.Sprintf("## Evidence: %d passages from %d distinct domains\n\n",
		len(state.Passages), state.DistinctDomains()))

	var covered, uncovered []string
	for _, f := range state.Facets {
		if !f.Required {
			continue
		}
		if f.Covered {
			covered = append(covered, f.Name)
		} else {
			uncovered = append(uncovered, f.Name)
		}
	}
	if len(covered) > 0 {
		sb.WriteString("## Covered required facets:\n")
		for _, name := range covered {
			sb.WriteString(fmt.Sprintf("- %s\n", name))
		}
		sb.WriteString("\n")
	}
	if len(uncovered) > 0 {
		sb.WriteString("## Uncovered required facets (suggested focused sub-query per facet):\n")
		for _, name := range uncovered {
			sb.WriteString(fmt.Sprintf("- %s -> try: %q\n", name, focusedSubQuery(name)))
		}
		sb.WriteString("\n")
	}

	if len(state.SearchHistory) > 0 {
		sb.WriteString("## Searches already tried (do NOT repeat these patterns):\n")
		for _, q := range state.SearchHistory {
			sb.WriteString(fmt.Sprintf("- %s\n", q))
		}
		sb.WriteString("\n")
	}

	if len(state.DecomposedQueries) > 0 {
		sb.WriteString("## MANDATORY sub-query list for this compound question.\nSEARCH queries must come from this list:\n")
		for _, q := range state.DecomposedQueries {
			marker := " "
			if state.UsedDecomposed[q] {
				marker = "x"
			}
			sb.WriteString(fmt.Sprintf("- [%s] %s\n", marker, q))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// focusedSubQuery turns a facet name into a compact search query.
func focusedSubQuery(facetName string) string {
	keywords := rerank.Keywords(facetName)
	if len(keywords) > 6 {
		keywords = keywords[:6]
	}
	return strings.Join(keywords, " ")
}

// ParsePlannerResponse extracts the action JSON from model output. The
// payload is loosely-typed model JSON, so unknown shapes are rejected here
// rather than trusted downstream.
func ParsePlannerResponse(response string) (Action, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return Action{}, fmt.Errorf("no JSON object found in response")
	}

	var parsed struct {
		Thought string `json:"thought"`
		Action  struct {
			Type      string `json:"type"`
			Query     string `json:"query"`
			K         int    `json:"k"`
			URL       string `json:"url"`
			TopN      int    `json:"top_n"`
			TimeRange string `json:"time_range"`
		} `json:"action"`
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return Action{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	t := ActionType(strings.ToUpper(strings.TrimSpace(parsed.Action.Type)))
	switch t {
	case ActionSearch, ActionFetch, ActionRerank, ActionStop:
	default:
		return Action{}, fmt.Errorf("unknown action type %q", parsed.Action.Type)
	}

	return Action{
		Type:      t,
		Query:     strings.TrimSpace(parsed.Action.Query),
		K:         parsed.Action.K,
		URL:       strings.TrimSpace(parsed.Action.URL),
		TopN:      parsed.Action.TopN,
		TimeRange: strings.ToLower(strings.TrimSpace(parsed.Action.TimeRange)),
		Thought:   strings.TrimSpace(parsed.Thought),
	}, nil
}

// validate repairs structurally valid but unusable actions.
func (p *Planner) validate(a Action, state *AgentState) Action {
	switch a.Type {
	case ActionSearch:
		return p.repairSearch(a, state)
	case ActionFetch:
		if a.URL == "" || !strings.HasPrefix(a.URL, "http") {
			p.logger.Warn("Planner proposed FETCH without a usable URL, falling back")
			return fallbackAction(state)
		}
	case ActionRerank:
		if a.TopN <= 0 {
			a.TopN = 10
		}
	}
	return a
}

// repairSearch rewrites a proposed SEARCH query when it is empty, duplicates
// the original question, has excessive clause count, or was already tried.
// The replacement is the next unused decomposed sub-query.
func (p *Planner) repairSearch(a Action, state *AgentState) Action {
	if a.K <= 0 {
		a.K = 8
	}

	reason := ""
	switch {
	case a.Query == "":
		reason = "empty query"
	case TokenOverlap(a.Query, state.Question.Text) > 0.7 && len(state.DecomposedQueries) > 0:
		reason = "query duplicates the original question"
	case clauseCount(a.Query) > 3:
		reason = "excessive clause count"
	case state.AlreadySearched(a.Query):
		reason = "query already tried"
	}
	if reason == "" {
		return a
	}

	if replacement := state.NextDecomposedQuery(); replacement != "" {
		p.logger.Info("Repaired planner search query",
			zap.String("reason", reason),
			zap.String("proposed", a.Query),
			zap.String("replacement", replacement),
		)
		a.Query = replacement
		return a
	}

	// No decomposed queries to draw from: narrow the original question.
	if a.Query == "" || state.AlreadySearched(a.Query) {
		a.Query = state.Question.Text + " latest"
	}
	return a
}

// clauseCount approximates the number of clauses by counting separators.
func clauseCount(query string) int {
	count := 1
	count += strings.Count(query, ",")
	count += strings.Count(strings.ToLower(query), " and ")
	count += strings.Count(query, ";")
	return count
}

// fallbackAction is the deterministic degradation for unparseable planner
// output: broaden the search while evidence is thin, otherwise consolidate.
func fallbackAction(state *AgentState) Action {
	if len(state.Passages) < 6 {
		query := state.Question.Text + " latest"
		if q := state.NextDecomposedQuery(); q != "" {
			query = q
		}
		return Action{Type: ActionSearch, Query: query, K: 8}
	}
	return Action{Type: ActionRerank, TopN: 10}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

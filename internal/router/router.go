// Package router classifies a question's required effort and dispatches it
// to the lightweight or full research pipeline.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/budget"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/llm"
	"github.com/Aiden-Hyun/deepanswer/internal/research"
)

// Budget caps applied to the MINIMAL_SEARCH route before the loop runs.
const (
	minimalSearchCap = 2
	minimalFetchCap  = 1
)

// Router classifies questions with one reasoning-model call.
type Router struct {
	llm    *llm.Manager
	model  string
	logger *zap.Logger
}

// New builds a router using the reasoning model.
func New(m *llm.Manager, model string, logger *zap.Logger) *Router {
	return &Router{llm: m, model: model, logger: logger}
}

const classifyPrompt = `You route research questions by required effort.

Return a JSON object, nothing else:
{"type": "DIRECT_ANSWER|MINIMAL_SEARCH|FULL_RESEARCH", "answer": "..."}

Types:
- DIRECT_ANSWER: trivial factual or definitional questions you can answer confidently without any search (capitals, definitions, stable well-known facts). Include the complete answer in "answer".
- MINIMAL_SEARCH: simple questions needing one quick confirmation from the web.
- FULL_RESEARCH: everything else, especially comparisons, current events, and multi-part questions.

When in doubt between types, pick the heavier one.`

// Classify derives the question's type, its time sensitivity, and (for
// DIRECT_ANSWER) the pre-generated answer. Classification failure degrades
// to FULL_RESEARCH so a broken router can only cost effort, never quality.
func (r *Router) Classify(ctx context.Context, text string) research.Question {
	q := research.Question{
		Text:          text,
		Type:          research.FullResearch,
		TimeSensitive: research.IsTimeSensitive(text),
	}

	res, err := r.llm.Call(ctx, r.model, []llm.Message{
		{Role: llm.RoleSystem, Content: classifyPrompt},
		{Role: llm.RoleUser, Content: text},
	}, llm.CallConfig{MaxTokens: 768, Temperature: 0.1})
	if err != nil {
		r.logger.Warn("Question classification failed, defaulting to full research", zap.Error(err))
		return q
	}

	qt, answer, err := parseClassification(res.Text)
	if err != nil {
		r.logger.Warn("Classification output unparseable, defaulting to full research", zap.Error(err))
		return q
	}

	// A direct answer for a time-sensitive question is a contradiction;
	// the model cannot know today's state without searching.
	if qt == research.DirectAnswer && q.TimeSensitive {
		qt = research.MinimalSearch
		answer = ""
	}
	if qt == research.DirectAnswer && answer == "" {
		qt = research.MinimalSearch
	}

	q.Type = qt
	q.Answer = answer
	return q
}

func parseClassification(response string) (research.QuestionType, string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return "", "", fmt.Errorf("no JSON object found in response")
	}

	var parsed struct {
		Type   string `json:"type"`
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return "", "", fmt.Errorf("failed to parse JSON: %w", err)
	}

	switch research.QuestionType(strings.ToUpper(strings.TrimSpace(parsed.Type))) {
	case research.DirectAnswer:
		return research.DirectAnswer, strings.TrimSpace(parsed.Answer), nil
	case research.MinimalSearch:
		return research.MinimalSearch, "", nil
	case research.FullResearch:
		return research.FullResearch, "", nil
	}
	return "", "", fmt.Errorf("unknown question type %q", parsed.Type)
}

// ApplyRouteBudget caps the effective budget for lightweight routes. Pure
// dispatch: FULL_RESEARCH budgets pass through unchanged.
func ApplyRouteBudget(qt research.QuestionType, b budget.Budget) budget.Budget {
	if qt == research.MinimalSearch {
		if b.Searches > minimalSearchCap {
			b.Searches = minimalSearchCap
		}
		if b.Fetches > minimalFetchCap {
			b.Fetches = minimalFetchCap
		}
	}
	return b
}

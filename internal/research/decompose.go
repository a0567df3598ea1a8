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

var comparisonMarkers = []string{
	" vs ", " vs.", " versus ", "compare", "comparison", "difference between",
	"better than", "worse than", "pros and cons",
}

var conjunctionMarkers = []string{" and ", " or ", " as well as ", "; "}

// IsComplexQuestion reports whether a question needs pre-computed sub-query
// decomposition: long questions, comparison language, or conjunctions.
func IsComplexQuestion(question string) bool {
	q := strings.ToLower(question)
	if len(strings.Fields(q)) > 15 {
		return true
	}
	for _, m := range comparisonMarkers {
		if strings.Contains(q, m) {
			return true
		}
	}
	for _, m := range conjunctionMarkers {
		if strings.Contains(q, m) {
			return true
		}
	}
	return false
}

// Decomposer splits compound questions into focused sub-queries.
type Decomposer struct {
	llm    *llm.Manager
	model  string
	logger *zap.Logger
}

// NewDecomposer builds a decomposer using the reasoning model.
func NewDecomposer(m *llm.Manager, model string, logger *zap.Logger) *Decomposer {
	return &Decomposer{llm: m, model: model, logger: logger}
}

const decomposePrompt = `You split a compound research question into focused, independently searchable sub-queries.

Return a JSON object:
{"queries": ["sub-query 1", "sub-query 2"]}

Rules:
- 2 to 5 sub-queries, each a self-contained search query under 12 words.
- Each sub-query targets exactly one entity, claim, or side of a comparison.
- Never return the original question verbatim.
- Return only the JSON object.`

// Decompose returns the ordered sub-query list for a complex question.
// Simple questions return nil. Model failure degrades to a heuristic split.
func (d *Decomposer) Decompose(ctx context.Context, question string) []string {
	if !IsComplexQuestion(question) {
		return nil
	}

	res, err := d.llm.Call(ctx, d.model, []llm.Message{
		{Role: llm.RoleSystem, Content: decomposePrompt},
		{Role: llm.RoleUser, Content: question},
	}, llm.CallConfig{MaxTokens: 512, Temperature: 0.3})
	if err != nil {
		d.logger.Warn("Decomposition call failed, using heuristic split", zap.Error(err))
		return HeuristicDecompose(question)
	}

	queries, err := parseDecomposeResponse(res.Text, question)
	if err != nil || len(queries) == 0 {
		d.logger.Warn("Decomposition returned malformed output, using heuristic split",
			zap.Error(err),
		)
		return HeuristicDecompose(question)
	}
	return queries
}

func parseDecomposeResponse(response, question string) ([]string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(parsed.Queries))
	for _, q := range parsed.Queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[strings.ToLower(q)] {
			continue
		}
		if TokenOverlap(q, question) > 0.9 {
			continue // effectively the original question
		}
		seen[strings.ToLower(q)] = true
		out = append(out, q)
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out, nil
}

// HeuristicDecompose splits on comparison and conjunction markers without a
// model call. Deterministic fallback.
func HeuristicDecompose(question string) []string {
	q := strings.TrimRight(strings.TrimSpace(question), "?")
	lower := strings.ToLower(q)

	for _, sep := range []string{" versus ", " vs. ", " vs "} {
		if idx := strings.Index(lower, sep); idx > 0 {
			left := strings.TrimSpace(q[:idx])
			right := strings.TrimSpace(q[idx+len(sep):])
			if left != "" && right != "" {
				return []string{left, right}
			}
		}
	}
	for _, sep := range []string{" and ", "; "} {
		if idx := strings.Index(lower, sep); idx > 0 {
			left := strings.TrimSpace(q[:idx])
			right := strings.TrimSpace(q[idx+len(sep):])
			if len(strings.Fields(left)) >= 3 && len(strings.Fields(right)) >= 3 {
				return []string{left, right}
			}
		}
	}
	// No usable split point: degrade to the question plus a narrowing tail.
	return []string{q + " overview", q + " details"}
}

// TokenOverlap returns the fraction of a's keywords that also appear in b.
func TokenOverlap(a, b string) float64 {
	aTokens := rerank.Keywords(a)
	if len(aTokens) == 0 {
		return 0
	}
	bSet := make(map[string]bool)
	for _, t := range rerank.Keywords(b) {
		bSet[t] = true
	}
	hits := 0
	for _, t := range aTokens {
		if bSet[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(aTokens))
}

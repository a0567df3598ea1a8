// Package synthesis selects diverse evidence and produces the final cited
// markdown answer.
package synthesis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/providers/llm"
	"github.com/Aiden-Hyun/deepanswer/internal/research"
)

const (
	selectionCount = 12 // passages offered to the synthesis model
	perDomainCap   = 3
)

// Engine runs the synthesis-model call.
type Engine struct {
	llm    *llm.Manager
	model  string
	logger *zap.Logger
}

// NewEngine builds the engine using the synthesis model.
func NewEngine(m *llm.Manager, model string, logger *zap.Logger) *Engine {
	return &Engine{llm: m, model: model, logger: logger}
}

// SelectTopDiverse scores each passage and greedily selects up to n while
// capping passages per source domain.
func SelectTopDiverse(passages []research.Passage, n int) []research.Passage {
	type scored struct {
		p     research.Passage
		score float64
	}
	items := make([]scored, 0, len(passages))
	for _, p := range passages {
		s := 0.55*p.Score +
			0.30*research.DomainAuthority(p.SourceDomain) +
			0.15*recencyDecay(p.PublishedDate)
		items = append(items, scored{p: p, score: s})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	perDomain := make(map[string]int)
	out := make([]research.Passage, 0, n)
	for _, it := range items {
		if perDomain[it.p.SourceDomain] >= perDomainCap {
			continue
		}
		perDomain[it.p.SourceDomain]++
		out = append(out, it.p)
		if len(out) >= n {
			break
		}
	}
	return out
}

// recencyDecay maps a published date to (0,1], halving roughly yearly, with
// a neutral floor for undated passages.
func recencyDecay(published *time.Time) float64 {
	if published == nil {
		return 0.3
	}
	ageDays := time.Since(*published).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / 365.0)
}

const synthesisSystemPrompt = `You write a final research answer in markdown from the supplied evidence passages.

Requirements:
- Cite every non-trivial claim inline as [Title (Date)](URL), using the passage's own title, date and URL.
- Prefer claims corroborated by at least 2 independent domains.
- Explicitly flag claims supported by only a single source, and claims whose evidence is older than a month when the question is time-sensitive.
- Never invent sources or facts not present in the passages.
- If the evidence is insufficient to answer, say exactly what is missing.`

// Synthesize makes one synthesis-model call over the selected passages and
// returns the cited markdown plus tokens used.
func (e *Engine) Synthesize(ctx context.Context, question string, passages []research.Passage) (string, int, error) {
	selected := SelectTopDiverse(passages, selectionCount)
	if len(selected) == 0 {
		return "", 0, fmt.Errorf("no evidence passages to synthesize from")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Question:\n%s\n\n## Evidence passages:\n", question))
	for i, p := range selected {
		date := "undated"
		if p.PublishedDate != nil {
			date = p.PublishedDate.Format("2006-01-02")
		}
		title := p.Title
		if title == "" {
			title = p.SourceDomain
		}
		sb.WriteString(fmt.Sprintf("\n[%d] Title: %s\nURL: %s\nDate: %s\nText: %s\n",
			i+1, title, p.URL, date, truncate(p.Text, 1500)))
	}

	res, err := e.llm.Call(ctx, e.model, []llm.Message{
		{Role: llm.RoleSystem, Content: synthesisSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}, llm.CallConfig{MaxTokens: 4096, Temperature: 0.3})
	if err != nil {
		return "", 0, fmt.Errorf("synthesis call failed: %w", err)
	}

	answer := AnnotateUncited(res.Text)
	return answer, res.TokensUsed, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

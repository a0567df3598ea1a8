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

// FacetManager decomposes a question into required sub-claims and tracks
// which are evidenced by the current passage set.
type FacetManager struct {
	llm    *llm.Manager
	model  string
	logger *zap.Logger
}

// NewFacetManager builds a facet manager using the reasoning model.
func NewFacetManager(m *llm.Manager, model string, logger *zap.Logger) *FacetManager {
	return &FacetManager{llm: m, model: model, logger: logger}
}

const facetExtractionPrompt = `You decompose research questions into facets: the distinct sub-claims or sub-topics that must each be evidenced before the question is answerable.

Return a JSON object:
{
  "facets": [
    {"name": "short facet name with its key terms", "required": true}
  ]
}

Rules:
- 2 to 5 facets; mark a facet required only if the answer is incomplete without it.
- Facet names must contain the concrete keywords a supporting source would use.
- Return only the JSON object.`

// ExtractFacets makes one reasoning-model call to list the question's
// facets. Malformed output degrades to a single required facet equal to the
// whole question.
func (f *FacetManager) ExtractFacets(ctx context.Context, question string) []Facet {
	fallback := []Facet{{Name: question, Required: true}}

	res, err := f.llm.Call(ctx, f.model, []llm.Message{
		{Role: llm.RoleSystem, Content: facetExtractionPrompt},
		{Role: llm.RoleUser, Content: question},
	}, llm.CallConfig{MaxTokens: 1024, Temperature: 0.2})
	if err != nil {
		f.logger.Warn("Facet extraction call failed, using whole question", zap.Error(err))
		return fallback
	}

	facets, err := parseFacetResponse(res.Text)
	if err != nil || len(facets) == 0 {
		f.logger.Warn("Facet extraction returned malformed output, using whole question",
			zap.Error(err),
		)
		return fallback
	}
	return facets
}

func parseFacetResponse(response string) ([]Facet, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var parsed struct {
		Facets []struct {
			Name     string `json:"name"`
			Required bool   `json:"required"`
		} `json:"facets"`
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	facets := make([]Facet, 0, len(parsed.Facets))
	for _, pf := range parsed.Facets {
		name := strings.TrimSpace(pf.Name)
		if name == "" {
			continue
		}
		facets = append(facets, Facet{Name: name, Required: pf.Required})
	}
	return facets, nil
}

// UpdateCoverage recomputes facet coverage from scratch against the current
// passage set. Pure: identical inputs always yield identical output, and
// the input slice is not mutated.
func UpdateCoverage(facets []Facet, passages []Passage) []Facet {
	out := make([]Facet, len(facets))
	for i, facet := range facets {
		keywords := rerank.Keywords(facet.Name)
		domains := make(map[string]bool)
		for _, p := range passages {
			if passageHitsFacet(keywords, p) && p.SourceDomain != "" {
				domains[p.SourceDomain] = true
			}
		}
		out[i] = Facet{
			Name:            facet.Name,
			Required:        facet.Required,
			CoveredDomains:  domains,
			Covered:         len(domains) >= 1,
			MultipleSources: len(domains) >= 2,
		}
	}
	return out
}

// passageHitsFacet requires every facet keyword to appear in title + text.
func passageHitsFacet(keywords []string, p Passage) bool {
	if len(keywords) == 0 {
		return false
	}
	haystack := strings.ToLower(p.Title + " " + p.Text)
	for _, kw := range keywords {
		if !strings.Contains(haystack, kw) {
			return false
		}
	}
	return true
}

// CoveredCount counts covered facets.
func CoveredCount(facets []Facet) int {
	n := 0
	for _, f := range facets {
		if f.Covered {
			n++
		}
	}
	return n
}

// RequiredCoverageRatio returns the fraction of required facets covered
// (1.0 when there are no required facets).
func RequiredCoverageRatio(facets []Facet) float64 {
	required, covered := 0, 0
	for _, f := range facets {
		if !f.Required {
			continue
		}
		required++
		if f.Covered {
			covered++
		}
	}
	if required == 0 {
		return 1.0
	}
	return float64(covered) / float64(required)
}

// AllRequiredCovered is the strict success condition gating STOP: the 60%
// ratio acts as a fast-path signal for the termination policy, and on top of
// it every required facet must be covered.
func AllRequiredCovered(facets []Facet) bool {
	if RequiredCoverageRatio(facets) < 0.6 {
		return false
	}
	for _, f := range facets {
		if f.Required && !f.Covered {
			return false
		}
	}
	return true
}

// HasDomainDiversity reports whether the passage set spans at least
// minDomains distinct source domains.
func HasDomainDiversity(passages []Passage, minDomains int) bool {
	seen := make(map[string]bool)
	for _, p := range passages {
		domain := p.SourceDomain
		if domain == "" {
			domain = SourceDomain(p.URL)
		}
		if domain != "" {
			seen[domain] = true
		}
		if len(seen) >= minDomains {
			return true
		}
	}
	return len(seen) >= minDomains
}

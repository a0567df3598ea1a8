package synthesis

import (
	"regexp"
	"strings"
	"time"

	"github.com/Aiden-Hyun/deepanswer/internal/research"
)

// MaxCitations caps the citation list in the final result.
const MaxCitations = 4

var (
	reCitationLink = regexp.MustCompile(`\[[^\]]+\]\(https?://[^)]+\)`)
	reNumericClaim = regexp.MustCompile(`\d+(\.\d+)?\s*(%|percent|million|billion|trillion|percentage)|\$\d|\d{4,}`)
	reProperPair   = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)
)

// AnnotateUncited appends a verify marker to lines carrying numbers,
// percentages, or proper-noun pairs that lack an inline citation link.
func AnnotateUncited(markdown string) string {
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if reCitationLink.MatchString(line) {
			continue
		}
		if reNumericClaim.MatchString(line) || reProperPair.MatchString(line) {
			lines[i] = line + " *(verify: uncited claim)*"
		}
	}
	return strings.Join(lines, "\n")
}

// BuildResult assembles the final result: citations deduplicated by URL,
// capped at MaxCitations, ordered by passage position; plus a time warning
// when a time-sensitive question only has stale evidence.
func BuildResult(answer string, state *research.AgentState, trace []string, now time.Time) *research.Result {
	seen := make(map[string]bool)
	citations := make([]research.Citation, 0, MaxCitations)
	for _, p := range state.Passages {
		if p.URL == "" || seen[p.URL] {
			continue
		}
		seen[p.URL] = true
		citations = append(citations, research.Citation{
			URL:           p.URL,
			Title:         p.Title,
			PublishedDate: p.PublishedDate,
		})
		if len(citations) >= MaxCitations {
			break
		}
	}

	result := &research.Result{
		FinalAnswerMarkdown: answer,
		Citations:           citations,
		Trace:               trace,
	}

	if state.Question.TimeSensitive && research.AllEvidenceStale(state.Passages, now) {
		result.TimeWarning = "No source newer than 30 days was found for this time-sensitive question; details may be out of date."
	}
	return result
}

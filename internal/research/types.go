// Package research implements the evidence-gathering core: per-run state,
// facet coverage, action planning, execution, and the plan-act loop.
package research

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// QuestionType classifies how much work a question needs.
type QuestionType string

const (
	DirectAnswer  QuestionType = "DIRECT_ANSWER"
	MinimalSearch QuestionType = "MINIMAL_SEARCH"
	FullResearch  QuestionType = "FULL_RESEARCH"
)

// Question is the immutable input plus its derived classification. For
// DirectAnswer questions, Answer holds the pre-generated response.
type Question struct {
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Answer        string       `json:"answer,omitempty"`
	TimeSensitive bool         `json:"time_sensitive"`
}

// Facet is one required sub-claim of the question. Facets are recomputed
// from the current passage set every iteration, never patched incrementally.
type Facet struct {
	Name            string          `json:"name"`
	Required        bool            `json:"required"`
	CoveredDomains  map[string]bool `json:"covered_domains,omitempty"`
	Covered         bool            `json:"covered"`
	MultipleSources bool            `json:"multiple_sources"`
}

// Passage is one unit of retrieved evidence with provenance.
type Passage struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	URL           string     `json:"url"`
	Title         string     `json:"title,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	SourceDomain  string     `json:"source_domain,omitempty"`
	Score         float64    `json:"score,omitempty"`
}

// PassageID derives a stable, collision-free id from the source URL plus a
// chunk ordinal (0 for search snippets).
func PassageID(url string, ordinal int) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%s-%d", hex.EncodeToString(sum[:6]), ordinal)
}

// ActionType tags the planner's action union.
type ActionType string

const (
	ActionSearch ActionType = "SEARCH"
	ActionFetch  ActionType = "FETCH"
	ActionRerank ActionType = "RERANK"
	ActionStop   ActionType = "STOP"
)

// Action is the closed tagged union produced by the planner. Only the
// fields for the tagged type are meaningful.
type Action struct {
	Type      ActionType `json:"type"`
	Query     string     `json:"query,omitempty"`
	K         int        `json:"k,omitempty"`
	URL       string     `json:"url,omitempty"`
	TopN      int        `json:"top_n,omitempty"`
	TimeRange string     `json:"time_range,omitempty"`
	Thought   string     `json:"thought,omitempty"`
}

// Metrics counts executed actions for one run.
type Metrics struct {
	Searches int `json:"searches"`
	Fetches  int `json:"fetches"`
	Reranks  int `json:"reranks"`
}

// Citation is one source reference in the final answer.
type Citation struct {
	URL           string     `json:"url"`
	Title         string     `json:"title,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
}

// Result is the final product of one research run.
type Result struct {
	FinalAnswerMarkdown string     `json:"final_answer_markdown"`
	Citations           []Citation `json:"citations"`
	Trace               []string   `json:"trace,omitempty"`
	TimeWarning         string     `json:"time_warning,omitempty"`
}

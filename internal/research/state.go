package research

import (
	"github.com/google/uuid"

	"github.com/Aiden-Hyun/deepanswer/internal/budget"
)

// AgentState is the per-run aggregate. It is owned exclusively by one
// orchestration run and never shared across concurrent questions, so no
// locking is needed.
type AgentState struct {
	RunID    string        `json:"run_id"`
	Question Question      `json:"question"`
	Passages []Passage     `json:"passages"`
	Facets   []Facet       `json:"facets"`
	Budget   budget.Budget `json:"budget"`
	Metrics  Metrics       `json:"metrics"`

	SearchHistory []string `json:"search_history"`

	// Decomposed sub-queries for complex questions: the ordered session
	// list plus the set of queries already consumed. Explicit state, not
	// module-level mutable data.
	DecomposedQueries []string        `json:"decomposed_queries"`
	UsedDecomposed    map[string]bool `json:"used_decomposed"`
}

// NewAgentState initializes run state for a question.
func NewAgentState(q Question, b budget.Budget) *AgentState {
	return &AgentState{
		RunID:          uuid.New().String(),
		Question:       q,
		Budget:         b,
		UsedDecomposed: make(map[string]bool),
	}
}

// RecordSearch appends a query to the search history and marks it used if it
// came from the decomposed list.
func (s *AgentState) RecordSearch(query string) {
	s.SearchHistory = append(s.SearchHistory, query)
	if s.UsedDecomposed != nil {
		s.UsedDecomposed[query] = true
	}
}

// AlreadySearched reports whether the exact query was tried before.
func (s *AgentState) AlreadySearched(query string) bool {
	for _, q := range s.SearchHistory {
		if q == query {
			return true
		}
	}
	return false
}

// NextDecomposedQuery returns the first unused decomposed sub-query. Once
// all are used, it cycles from the start; returns "" when none exist.
func (s *AgentState) NextDecomposedQuery() string {
	if len(s.DecomposedQueries) == 0 {
		return ""
	}
	for _, q := range s.DecomposedQueries {
		if !s.UsedDecomposed[q] {
			return q
		}
	}
	// All consumed: cycle.
	for q := range s.UsedDecomposed {
		delete(s.UsedDecomposed, q)
	}
	return s.DecomposedQueries[0]
}

// DistinctDomains counts distinct source domains across the passage set.
func (s *AgentState) DistinctDomains() int {
	seen := make(map[string]bool)
	for _, p := range s.Passages {
		if p.SourceDomain != "" {
			seen[p.SourceDomain] = true
		}
	}
	return len(seen)
}

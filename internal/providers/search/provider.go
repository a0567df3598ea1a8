// Package search provides web-search provider backends behind one
// capability interface, ordered first-available-wins.
package search

import (
	"context"
	"errors"
)

// TimeRange narrows a search to recent results.
type TimeRange string

const (
	RangeAny   TimeRange = ""
	RangeDay   TimeRange = "day"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
)

// Result is one web-search hit.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
}

// Provider is one web-search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, k int, timeRange TimeRange) ([]Result, error)
}

// ErrAllProvidersFailed is returned when every registered backend failed.
var ErrAllProvidersFailed = errors.New("search: all providers failed")

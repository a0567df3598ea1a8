package research

import (
	"fmt"
	"strings"
	"time"
)

var freshnessKeywords = []string{
	"today", "latest", "current", "now", "recent", "recently",
	"this week", "this month", "this year", "breaking", "news",
	"price", "stock", "update", "upcoming",
}

// IsTimeSensitive reports whether a question's answer is likely to change
// day to day: freshness keywords or mention of the current/previous year.
func IsTimeSensitive(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range freshnessKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	year := time.Now().Year()
	for _, y := range []int{year, year - 1} {
		if strings.Contains(q, fmt.Sprintf("%d", y)) {
			return true
		}
	}
	return false
}

// StaleEvidenceCutoff is the age past which evidence for a time-sensitive
// question is considered stale.
const StaleEvidenceCutoff = 30 * 24 * time.Hour

// NewestPassageDate returns the most recent published date across passages,
// or nil if none carries a date.
func NewestPassageDate(passages []Passage) *time.Time {
	var newest *time.Time
	for i := range passages {
		d := passages[i].PublishedDate
		if d == nil {
			continue
		}
		if newest == nil || d.After(*newest) {
			newest = d
		}
	}
	return newest
}

// AllEvidenceStale reports whether no passage is newer than the staleness
// cutoff (undated evidence counts as stale).
func AllEvidenceStale(passages []Passage, now time.Time) bool {
	newest := NewestPassageDate(passages)
	if newest == nil {
		return true
	}
	return now.Sub(*newest) > StaleEvidenceCutoff
}

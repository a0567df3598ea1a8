package fetch

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reISODate   = regexp.MustCompile(`\b(20\d{2})-(\d{2})-(\d{2})\b`)
	reURLDate   = regexp.MustCompile(`/(20\d{2})/(\d{1,2})(?:/(\d{1,2}))?/`)
	reLongDate  = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(20\d{2})\b`)
	reMetaDate  = regexp.MustCompile(`(?i)(?:published|updated|posted)(?:\s+on)?[:\s]+([A-Za-z]+\s+\d{1,2},?\s+20\d{2}|20\d{2}-\d{2}-\d{2})`)
	monthByName = map[string]time.Month{
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June, "july": time.July,
		"august": time.August, "september": time.September, "october": time.October,
		"november": time.November, "december": time.December,
	}
)

// ExtractPublishedDate scans page content and the URL path for a publication
// date. Returns nil when nothing recognizable is found.
func ExtractPublishedDate(content, url string) *time.Time {
	// Explicit published/updated annotations are the most trustworthy.
	if m := reMetaDate.FindStringSubmatch(content); len(m) > 1 {
		if t := parseLooseDate(m[1]); t != nil {
			return t
		}
	}
	if m := reISODate.FindStringSubmatch(content); len(m) > 3 {
		if t := makeDate(m[1], m[2], m[3]); t != nil {
			return t
		}
	}
	if m := reLongDate.FindStringSubmatch(content); len(m) > 3 {
		if t := makeLongDate(m[1], m[2], m[3]); t != nil {
			return t
		}
	}
	// URL path patterns like /2026/03/14/.
	if m := reURLDate.FindStringSubmatch(url); len(m) > 1 {
		day := m[3]
		if day == "" {
			day = "1"
		}
		if t := makeDate(m[1], m[2], day); t != nil {
			return t
		}
	}
	return nil
}

func parseLooseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if m := reISODate.FindStringSubmatch(s); len(m) > 3 {
		return makeDate(m[1], m[2], m[3])
	}
	if m := reLongDate.FindStringSubmatch(s); len(m) > 3 {
		return makeLongDate(m[1], m[2], m[3])
	}
	return nil
}

func makeDate(y, m, d string) *time.Time {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.After(time.Now().AddDate(0, 0, 1)) {
		return nil
	}
	return &t
}

func makeLongDate(monthName, d, y string) *time.Time {
	month, ok := monthByName[strings.ToLower(monthName)]
	if !ok {
		return nil
	}
	year, _ := strconv.Atoi(y)
	day, _ := strconv.Atoi(d)
	if day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.After(time.Now().AddDate(0, 0, 1)) {
		return nil
	}
	return &t
}

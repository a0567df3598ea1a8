package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// EvergreenBucket is the day-bucket token used for questions whose answers
// do not change day to day. Time-sensitive questions use today's date
// instead, so their cached answers roll over at midnight while stable
// questions share one entry.
const EvergreenBucket = "evergreen"

// AnswerKeyParts are the inputs that determine one answer-cache entry.
type AnswerKeyParts struct {
	Question       string
	DayBucket      string
	ReasoningModel string
	SynthesisModel string
	Searches       int
	Fetches        int
}

// DayBucket returns today's date for time-sensitive questions and the fixed
// evergreen token otherwise.
func DayBucket(timeSensitive bool, now time.Time) string {
	if timeSensitive {
		return now.UTC().Format("2006-01-02")
	}
	return EvergreenBucket
}

// AnswerKey builds the deterministic answer-cache key. Identical parts
// always hash to the same key.
func AnswerKey(p AnswerKeyParts) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		normalizeQuestion(p.Question), p.DayBucket,
		p.ReasoningModel, p.SynthesisModel,
		p.Searches, p.Fetches)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// SearchKey keys one provider search call.
func SearchKey(query string, k int, timeRange string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", strings.ToLower(strings.TrimSpace(query)), k, timeRange)))
	return hex.EncodeToString(sum[:])
}

// PageKey keys one fetched URL.
func PageKey(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}

func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

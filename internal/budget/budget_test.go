package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	b := New(Overrides{})
	assert.Equal(t, int64(DefaultTimeMs), b.TimeMs)
	assert.Equal(t, DefaultSearches, b.Searches)
	assert.Equal(t, DefaultFetches, b.Fetches)
	assert.Equal(t, DefaultTokens, b.Tokens)
	assert.WithinDuration(t, time.Now(), b.StartedAt, time.Second)
}

func TestNewAppliesOverrides(t *testing.T) {
	b := New(Overrides{TimeMs: 5000, Searches: 2, Fetches: 1, Tokens: 1000})
	assert.Equal(t, int64(5000), b.TimeMs)
	assert.Equal(t, 2, b.Searches)
	assert.Equal(t, 1, b.Fetches)
	assert.Equal(t, 1000, b.Tokens)
}

func TestIsDepletedOnCounters(t *testing.T) {
	b := New(Overrides{Searches: 1, Fetches: 1})
	require.False(t, b.IsDepleted())

	require.True(t, b.ConsumeSearch())
	assert.False(t, b.IsDepleted(), "fetches remain")

	require.True(t, b.ConsumeFetch())
	assert.True(t, b.IsDepleted(), "both counters spent")
}

func TestIsDepletedOnElapsedTime(t *testing.T) {
	b := New(Overrides{TimeMs: 10})
	b.StartedAt = time.Now().Add(-time.Second)
	assert.True(t, b.IsDepleted())
}

func TestCountersNeverNegative(t *testing.T) {
	b := New(Overrides{Searches: 1, Fetches: 1})
	for i := 0; i < 5; i++ {
		b.ConsumeSearch()
		b.ConsumeFetch()
	}
	assert.Equal(t, 0, b.Searches)
	assert.Equal(t, 0, b.Fetches)
}

func TestTimeFractionUsed(t *testing.T) {
	b := New(Overrides{TimeMs: 1000})
	b.StartedAt = time.Now().Add(-900 * time.Millisecond)
	frac := b.TimeFractionUsed()
	assert.Greater(t, frac, 0.85)
	assert.Less(t, frac, 1.1)
}

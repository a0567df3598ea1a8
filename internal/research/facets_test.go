package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passage(url, title, text string) Passage {
	return Passage{
		ID:           PassageID(url, 0),
		URL:          url,
		Title:        title,
		Text:         text,
		SourceDomain: SourceDomain(url),
	}
}

func TestUpdateCoverageKeywordHit(t *testing.T) {
	facets := []Facet{{Name: "France capital city", Required: true}}
	passages := []Passage{
		passage("https://en.wikipedia.org/wiki/Paris", "Paris", "Paris is the capital city of France."),
	}

	out := UpdateCoverage(facets, passages)
	require.Len(t, out, 1)
	assert.True(t, out[0].Covered)
	assert.False(t, out[0].MultipleSources)
}

func TestUpdateCoverageRequiresAllKeywords(t *testing.T) {
	facets := []Facet{{Name: "solar panel efficiency records", Required: true}}
	passages := []Passage{
		passage("https://example.com/a", "Solar panels", "Solar panel prices fell."), // no "efficiency"/"records"
	}

	out := UpdateCoverage(facets, passages)
	assert.False(t, out[0].Covered)
}

func TestUpdateCoverageMultipleSources(t *testing.T) {
	facets := []Facet{{Name: "Paris capital France", Required: true}}
	passages := []Passage{
		passage("https://en.wikipedia.org/wiki/Paris", "Paris", "Paris is the capital of France."),
		passage("https://www.britannica.com/place/Paris", "Paris", "Paris, capital of France."),
	}

	out := UpdateCoverage(facets, passages)
	assert.True(t, out[0].Covered)
	assert.True(t, out[0].MultipleSources)
	assert.Len(t, out[0].CoveredDomains, 2)
}

func TestUpdateCoverageIsIdempotent(t *testing.T) {
	facets := []Facet{
		{Name: "Paris capital France", Required: true},
		{Name: "Berlin capital Germany", Required: true},
	}
	passages := []Passage{
		passage("https://en.wikipedia.org/wiki/Paris", "Paris", "Paris is the capital of France."),
	}

	first := UpdateCoverage(facets, passages)
	second := UpdateCoverage(facets, passages)
	assert.Equal(t, first, second, "identical inputs must yield identical output")

	// The input slice is never mutated.
	assert.False(t, facets[0].Covered)
}

func TestAllRequiredCovered(t *testing.T) {
	covered := Facet{Name: "a", Required: true, Covered: true}
	uncovered := Facet{Name: "b", Required: true, Covered: false}
	optional := Facet{Name: "c", Required: false, Covered: false}

	assert.True(t, AllRequiredCovered([]Facet{covered, optional}))
	assert.False(t, AllRequiredCovered([]Facet{covered, uncovered}),
		"one uncovered required facet fails the strict gate")
	assert.True(t, AllRequiredCovered(nil))
}

func TestRequiredCoverageRatio(t *testing.T) {
	facets := []Facet{
		{Name: "a", Required: true, Covered: true},
		{Name: "b", Required: true, Covered: true},
		{Name: "c", Required: true, Covered: false},
		{Name: "d", Required: false, Covered: false},
	}
	assert.InDelta(t, 2.0/3.0, RequiredCoverageRatio(facets), 0.001)
	assert.Equal(t, 1.0, RequiredCoverageRatio(nil))
}

func TestHasDomainDiversity(t *testing.T) {
	passages := []Passage{
		passage("https://a.example.com/1", "", "x"),
		passage("https://b.example.org/1", "", "x"),
	}
	assert.True(t, HasDomainDiversity(passages, 2))
	assert.False(t, HasDomainDiversity(passages, 3))
	assert.False(t, HasDomainDiversity(nil, 1))
}

func TestParseFacetResponse(t *testing.T) {
	facets, err := parseFacetResponse(`Here you go:
{"facets": [{"name": "US corporate tax rate", "required": true}, {"name": "historical context", "required": false}]}`)
	require.NoError(t, err)
	require.Len(t, facets, 2)
	assert.True(t, facets[0].Required)
	assert.False(t, facets[1].Required)
}

func TestParseFacetResponseMalformed(t *testing.T) {
	_, err := parseFacetResponse("I could not decompose this question.")
	assert.Error(t, err)
}

package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/cache"
)

type fakeBackend struct {
	name    string
	results []Result
	err     error
	calls   int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Search(ctx context.Context, query string, k int, tr TimeRange) ([]Result, error) {
	f.calls++
	return f.results, f.err
}

func TestManagerFirstAvailableWins(t *testing.T) {
	a := &fakeBackend{name: "a", results: []Result{{URL: "https://a.example/1"}}}
	b := &fakeBackend{name: "b", results: []Result{{URL: "https://b.example/1"}}}
	m := NewManager([]Provider{a, b}, nil, 0, zap.NewNop())

	got, err := m.Search(context.Background(), "q", 5, RangeAny)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/1", got[0].URL)
	assert.Equal(t, 0, b.calls)
}

func TestManagerFallsBack(t *testing.T) {
	a := &fakeBackend{name: "a", err: assert.AnError}
	b := &fakeBackend{name: "b", results: []Result{{URL: "https://b.example/1"}}}
	m := NewManager([]Provider{a, b}, nil, 0, zap.NewNop())

	got, err := m.Search(context.Background(), "q", 5, RangeAny)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://b.example/1", got[0].URL)
}

func TestManagerAvailable(t *testing.T) {
	assert.False(t, NewManager(nil, nil, 0, zap.NewNop()).Available())
	assert.True(t, NewManager([]Provider{&fakeBackend{name: "a"}}, nil, 0, zap.NewNop()).Available())
}

func TestManagerCachesResults(t *testing.T) {
	mr := miniredis.RunT(t)
	store := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zap.NewNop())

	a := &fakeBackend{name: "a", results: []Result{{URL: "https://a.example/1", Title: "t"}}}
	m := NewManager([]Provider{a}, store, time.Minute, zap.NewNop())

	_, err := m.Search(context.Background(), "cached q", 5, RangeAny)
	require.NoError(t, err)
	_, err = m.Search(context.Background(), "cached q", 5, RangeAny)
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls, "second identical query should hit the cache")
}

func TestSerperParsesOrganicResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "golang", body["q"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"organic": []map[string]string{
				{"title": "Go", "link": "https://go.dev", "snippet": "The Go programming language", "date": "Jan 2, 2026"},
				{"title": "no link"},
			},
		})
	}))
	defer srv.Close()

	p := NewSerperProvider("test-key")
	p.baseURL = srv.URL

	got, err := p.Search(context.Background(), "golang", 5, RangeAny)
	require.NoError(t, err)
	require.Len(t, got, 1, "entries without a link are dropped")
	assert.Equal(t, "https://go.dev", got[0].URL)
	assert.Equal(t, "Jan 2, 2026", got[0].Date)
}

func TestBraveParsesWebResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "pm", r.URL.Query().Get("freshness"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"web": map[string]interface{}{
				"results": []map[string]string{
					{"title": "Go", "url": "https://go.dev", "description": "Go language"},
				},
			},
		})
	}))
	defer srv.Close()

	p := NewBraveProvider("test-key")
	p.baseURL = srv.URL

	got, err := p.Search(context.Background(), "golang", 5, RangeMonth)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://go.dev", got[0].URL)
}

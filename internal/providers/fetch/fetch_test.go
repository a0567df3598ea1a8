package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchViaReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"title": "Example", "content": "Readable body text."},
		})
	}))
	defer srv.Close()

	f := New("", 5*time.Second, nil, 0, zap.NewNop())
	f.jinaBase = srv.URL + "/"

	page, err := f.Fetch(context.Background(), "https://example.com/article")
	require.NoError(t, err)
	assert.Equal(t, "Example", page.Title)
	assert.Equal(t, "Readable body text.", page.Text)
}

func TestFetchFallsBackToRawHTML(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Raw Title</title><script>junk()</script></head>
<body><nav>menu</nav><p>Actual article&nbsp;content here.</p></body></html>`))
	}))
	defer page.Close()

	reader := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusBadGateway)
	}))
	defer reader.Close()

	f := New("", 5*time.Second, nil, 0, zap.NewNop())
	f.jinaBase = reader.URL + "/"

	got, err := f.Fetch(context.Background(), page.URL)
	require.NoError(t, err)
	assert.Equal(t, "Raw Title", got.Title)
	assert.Contains(t, got.Text, "Actual article content here.")
	assert.NotContains(t, got.Text, "junk()")
	assert.NotContains(t, got.Text, "menu")
}

func TestStripHTML(t *testing.T) {
	title, text := StripHTML(`<html><title>T</title><style>.a{}</style><body>Hello <b>world</b> &amp; more</body></html>`)
	assert.Equal(t, "T", title)
	assert.Contains(t, text, "Hello world")
	assert.Contains(t, text, "& more")
}

func TestExtractPublishedDateFromContent(t *testing.T) {
	d := ExtractPublishedDate("Published on March 14, 2026 by staff", "https://example.com/a")
	require.NotNil(t, d)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 14, d.Day())
}

func TestExtractPublishedDateISO(t *testing.T) {
	d := ExtractPublishedDate("Report issued 2025-11-02 covering Q3.", "https://example.com")
	require.NotNil(t, d)
	assert.Equal(t, "2025-11-02", d.Format("2006-01-02"))
}

func TestExtractPublishedDateFromURLPath(t *testing.T) {
	d := ExtractPublishedDate("no dates in body", "https://blog.example.com/2025/07/09/post-title")
	require.NotNil(t, d)
	assert.Equal(t, "2025-07-09", d.Format("2006-01-02"))
}

func TestExtractPublishedDateAbsent(t *testing.T) {
	assert.Nil(t, ExtractPublishedDate("timeless prose", "https://example.com/about"))
}

func TestExtractPublishedDateRejectsFuture(t *testing.T) {
	assert.Nil(t, ExtractPublishedDate("scheduled for 2099-01-01", "https://example.com"))
}

// Package fetch retrieves readable page content with a primary extraction
// path (Jina Reader) and a raw-HTML fallback.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/cache"
	"github.com/Aiden-Hyun/deepanswer/internal/metrics"
)

const (
	jinaReaderBase = "https://r.jina.ai/"
	maxBodyBytes   = 2 << 20 // 2 MiB cap on fetched bodies
)

// Page is extracted page content.
type Page struct {
	Text   string `json:"text"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status"`
}

// Fetcher retrieves and extracts page content.
type Fetcher struct {
	jinaAPIKey string
	jinaBase   string
	client     *http.Client
	store      *cache.Store
	ttl        time.Duration
	logger     *zap.Logger
}

// New builds a fetcher. store may be nil, which disables page caching.
func New(jinaAPIKey string, timeout time.Duration, store *cache.Store, ttl time.Duration, logger *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		jinaAPIKey: jinaAPIKey,
		jinaBase:   jinaReaderBase,
		client:     &http.Client{Timeout: timeout},
		store:      store,
		ttl:        ttl,
		logger:     logger,
	}
}

// Fetch retrieves url, trying the reader service first and falling back to a
// raw GET with HTML tag stripping.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	key := cache.PageKey(url)
	if f.store != nil {
		var cached Page
		if err := f.store.Get(ctx, cache.NamespacePage, key, &cached); err == nil {
			return &cached, nil
		}
	}

	page, err := f.fetchViaReader(ctx, url)
	if err != nil {
		f.logger.Debug("Reader extraction failed, trying raw HTML",
			zap.String("url", url),
			zap.Error(err),
		)
		metrics.ProviderFallbacks.WithLabelValues("fetch").Inc()
		page, err = f.fetchRaw(ctx, url)
		if err != nil {
			return nil, err
		}
	}

	if f.store != nil {
		if err := f.store.Set(ctx, cache.NamespacePage, key, page, f.ttl); err != nil {
			f.logger.Warn("Failed to cache page content", zap.Error(err))
		}
	}
	return page, nil
}

func (f *Fetcher) fetchViaReader(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.jinaBase+url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.jinaAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.jinaAPIKey)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	metrics.ProviderCalls.WithLabelValues("fetch", "jina").Inc()
	metrics.ProviderLatency.WithLabelValues("fetch", "jina").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("reader request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d from reader", resp.StatusCode)
	}

	var parsed struct {
		Data struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode reader response: %w", err)
	}
	if parsed.Data.Content == "" {
		return nil, fmt.Errorf("reader returned empty content")
	}

	return &Page{Text: parsed.Data.Content, Title: parsed.Data.Title, Status: resp.StatusCode}, nil
}

func (f *Fetcher) fetchRaw(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "deepanswer/1.0 (+research)")

	start := time.Now()
	resp, err := f.client.Do(req)
	metrics.ProviderCalls.WithLabelValues("fetch", "raw").Inc()
	metrics.ProviderLatency.WithLabelValues("fetch", "raw").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("raw fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	title, text := StripHTML(string(raw))
	if text == "" {
		return nil, fmt.Errorf("no readable text extracted from %s", url)
	}
	return &Page{Text: text, Title: title, Status: resp.StatusCode}, nil
}

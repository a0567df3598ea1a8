package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const serperDefaultURL = "https://google.serper.dev/search"

// SerperProvider queries the Serper.dev Google search API.
type SerperProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSerperProvider builds the provider. baseURL overrides are used by tests.
func NewSerperProvider(apiKey string) *SerperProvider {
	return &SerperProvider{
		apiKey:  apiKey,
		baseURL: serperDefaultURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the provider identifier.
func (p *SerperProvider) Name() string { return "serper" }

func serperTBS(tr TimeRange) string {
	switch tr {
	case RangeDay:
		return "qdr:d"
	case RangeWeek:
		return "qdr:w"
	case RangeMonth:
		return "qdr:m"
	case RangeYear:
		return "qdr:y"
	}
	return ""
}

// Search runs one query.
func (p *SerperProvider) Search(ctx context.Context, query string, k int, timeRange TimeRange) ([]Result, error) {
	body := map[string]interface{}{
		"q":   query,
		"num": k,
	}
	if tbs := serperTBS(timeRange); tbs != "" {
		body["tbs"] = tbs
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d from serper", resp.StatusCode)
	}

	var parsed struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
			Date    string `json:"date"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode serper response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Organic))
	for _, o := range parsed.Organic {
		if o.Link == "" {
			continue
		}
		results = append(results, Result{
			URL:     o.Link,
			Title:   o.Title,
			Snippet: o.Snippet,
			Date:    o.Date,
		})
	}
	return results, nil
}

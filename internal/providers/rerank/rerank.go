// Package rerank scores passages by relevance to a query, using the Jina
// rerank API when configured and a keyword-overlap fallback otherwise.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/metrics"
)

const jinaRerankURL = "https://api.jina.ai/v1/rerank"

// Scored pairs a document index with its relevance score, ordered best-first.
type Scored struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Reranker orders documents by relevance to a query.
type Reranker struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// New builds a reranker. An empty apiKey disables the remote path; Rerank
// then always uses the keyword fallback.
func New(apiKey string, logger *zap.Logger) *Reranker {
	return &Reranker{
		apiKey:  apiKey,
		baseURL: jinaRerankURL,
		model:   "jina-reranker-v2-base-multilingual",
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Rerank returns document indices with scores, best-first, truncated to
// topN. Provider failure silently degrades to the keyword fallback.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string, topN int) []Scored {
	if topN <= 0 || topN > len(documents) {
		topN = len(documents)
	}
	if len(documents) == 0 {
		return nil
	}

	if r.apiKey != "" {
		scored, err := r.rerankRemote(ctx, query, documents, topN)
		if err == nil {
			return scored
		}
		r.logger.Warn("Rerank provider failed, using keyword fallback", zap.Error(err))
		metrics.ProviderFallbacks.WithLabelValues("rerank").Inc()
	}

	return KeywordRerank(query, documents, topN)
}

func (r *Reranker) rerankRemote(ctx context.Context, query string, documents []string, topN int) ([]Scored, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model":     r.model,
		"query":     query,
		"documents": documents,
		"top_n":     topN,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	start := time.Now()
	resp, err := r.client.Do(req)
	metrics.ProviderCalls.WithLabelValues("rerank", "jina").Inc()
	metrics.ProviderLatency.WithLabelValues("rerank", "jina").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d from rerank provider", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scored := make([]Scored, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			continue
		}
		scored = append(scored, Scored{Index: res.Index, Score: res.RelevanceScore})
	}
	if len(scored) == 0 {
		return nil, fmt.Errorf("rerank provider returned no usable results")
	}
	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored, nil
}

// KeywordRerank scores each document by the fraction of query keywords it
// contains. Deterministic and dependency-free.
func KeywordRerank(query string, documents []string, topN int) []Scored {
	keywords := Keywords(query)
	scored := make([]Scored, len(documents))
	for i, doc := range documents {
		lower := strings.ToLower(doc)
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		score := 0.0
		if len(keywords) > 0 {
			score = float64(hits) / float64(len(keywords))
		}
		scored[i] = Scored{Index: i, Score: score}
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })
	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

// Keywords lower-cases and tokenizes text, keeping tokens longer than two
// characters.
func Keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

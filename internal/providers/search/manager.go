package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/cache"
	"github.com/Aiden-Hyun/deepanswer/internal/metrics"
)

// Manager tries each registered backend in order until one returns results.
// Results are cached in the search namespace so repeated queries within a
// run (or across runs on the same day) do not consume provider quota.
type Manager struct {
	providers []Provider
	store     *cache.Store
	ttl       time.Duration
	logger    *zap.Logger
}

// NewManager builds a manager over the given backends in fallback order.
// store may be nil, which disables result caching.
func NewManager(providers []Provider, store *cache.Store, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{providers: providers, store: store, ttl: ttl, logger: logger}
}

// Available reports whether at least one backend is registered.
func (m *Manager) Available() bool { return len(m.providers) > 0 }

// Search runs one query through the first backend that succeeds.
func (m *Manager) Search(ctx context.Context, query string, k int, timeRange TimeRange) ([]Result, error) {
	key := cache.SearchKey(query, k, string(timeRange))
	if m.store != nil {
		var cached []Result
		if err := m.store.Get(ctx, cache.NamespaceSearch, key, &cached); err == nil {
			return cached, nil
		}
	}

	var lastErr error = ErrAllProvidersFailed
	for i, p := range m.providers {
		if i > 0 {
			metrics.ProviderFallbacks.WithLabelValues("search").Inc()
		}

		start := time.Now()
		results, err := p.Search(ctx, query, k, timeRange)
		metrics.ProviderCalls.WithLabelValues("search", p.Name()).Inc()
		metrics.ProviderLatency.WithLabelValues("search", p.Name()).Observe(time.Since(start).Seconds())

		if err != nil {
			m.logger.Warn("Search provider failed",
				zap.String("provider", p.Name()),
				zap.String("query", query),
				zap.Error(err),
			)
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		if m.store != nil {
			if err := m.store.Set(ctx, cache.NamespaceSearch, key, results, m.ttl); err != nil {
				m.logger.Warn("Failed to cache search results", zap.Error(err))
			}
		}
		return results, nil
	}
	return nil, lastErr
}

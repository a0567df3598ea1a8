package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Aiden-Hyun/deepanswer/internal/metrics"
)

// Manager holds an ordered list of providers and tries each in turn until
// one succeeds. Each provider is tried at most once per call; there are no
// blind retry loops.
type Manager struct {
	providers []Provider
	logger    *zap.Logger
	limiter   *rate.Limiter
	timeout   time.Duration
}

// NewManager builds a manager over the given providers in fallback order.
func NewManager(providers []Provider, logger *zap.Logger) *Manager {
	return &Manager{
		providers: providers,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Limit(5), 10),
		timeout:   60 * time.Second,
	}
}

// Available reports whether at least one provider is registered.
func (m *Manager) Available() bool { return len(m.providers) > 0 }

// Call invokes the first provider that succeeds.
func (m *Manager) Call(ctx context.Context, model string, messages []Message, cfg CallConfig) (*Result, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error = ErrAllProvidersFailed
	for i, p := range m.providers {
		if i > 0 {
			metrics.ProviderFallbacks.WithLabelValues("llm").Inc()
		}

		callCtx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		res, err := p.Call(callCtx, model, messages, cfg)
		cancel()

		metrics.ProviderCalls.WithLabelValues("llm", p.Name()).Inc()
		metrics.ProviderLatency.WithLabelValues("llm", p.Name()).Observe(time.Since(start).Seconds())

		if err != nil {
			m.logger.Warn("LLM provider call failed",
				zap.String("provider", p.Name()),
				zap.String("model", model),
				zap.Error(err),
			)
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		return res, nil
	}
	return nil, lastErr
}

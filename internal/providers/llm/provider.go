// Package llm normalizes vendor-specific language-model APIs to one call
// shape and provides ordered fallback across providers.
package llm

import (
	"context"
	"errors"
)

// Role values for chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a provider-neutral chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallConfig carries per-call generation settings.
type CallConfig struct {
	MaxTokens   int
	Temperature float64
}

// Result is the normalized return shape of every provider.
type Result struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
}

// Provider is one language-model backend. Implementations hide the
// vendor-specific request shape (single-shot max_tokens style vs structured
// system+user message lists) behind this interface.
type Provider interface {
	Name() string
	Call(ctx context.Context, model string, messages []Message, cfg CallConfig) (*Result, error)
}

// ErrAllProvidersFailed is returned by the Manager when every registered
// provider failed for one call.
var ErrAllProvidersFailed = errors.New("llm: all providers failed")

func splitSystem(messages []Message) (system string, rest []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem && system == "" {
			system = m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

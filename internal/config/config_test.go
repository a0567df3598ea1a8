package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(25000), cfg.Budget.TimeMs)
	assert.Equal(t, 4, cfg.Budget.Searches)
	assert.Equal(t, 12, cfg.Budget.Fetches)
	assert.Equal(t, 8, cfg.Search.DefaultK)
	assert.Equal(t, 7*24*3600, cfg.Cache.AnswerTTLSeconds)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SERPER_API_KEY", "serper-test")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("DEEPANSWER_BEARER_TOKEN", "tok")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "serper-test", cfg.Search.SerperAPIKey)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "tok", cfg.Auth.BearerToken)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.Validate(), ErrNoLLMProvider)

	cfg.AnthropicAPIKey = "key"
	assert.ErrorIs(t, cfg.Validate(), ErrNoSearchProvider)

	cfg.Search.BraveAPIKey = "key"
	assert.NoError(t, cfg.Validate())
}

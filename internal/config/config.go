package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Fatal configuration errors. These are the only error class surfaced to the
// caller before any research work begins.
var (
	ErrNoLLMProvider    = errors.New("no language-model provider configured (set OPENAI_API_KEY or ANTHROPIC_API_KEY)")
	ErrNoSearchProvider = errors.New("no search provider configured (set SERPER_API_KEY or BRAVE_API_KEY)")
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// RedisConfig holds cache-store connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ModelsConfig names the models used by the pipeline stages.
type ModelsConfig struct {
	Reasoning string `mapstructure:"reasoning"`
	Synthesis string `mapstructure:"synthesis"`
}

// BudgetConfig holds the default resource envelope for one run.
type BudgetConfig struct {
	TimeMs   int64 `mapstructure:"time_ms"`
	Searches int   `mapstructure:"searches"`
	Fetches  int   `mapstructure:"fetches"`
	Tokens   int   `mapstructure:"tokens"`
}

// SearchConfig holds web-search provider settings. A provider is enabled by
// the presence of its API key; ordering is first-available-wins.
type SearchConfig struct {
	SerperAPIKey string `mapstructure:"serper_api_key"`
	BraveAPIKey  string `mapstructure:"brave_api_key"`
	DefaultK     int    `mapstructure:"default_k"`
}

// FetchConfig holds page-content retrieval settings.
type FetchConfig struct {
	JinaAPIKey string        `mapstructure:"jina_api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds per-namespace TTLs in seconds.
type CacheConfig struct {
	AnswerTTLSeconds int `mapstructure:"answer_ttl_seconds"`
	SearchTTLSeconds int `mapstructure:"search_ttl_seconds"`
	PageTTLSeconds   int `mapstructure:"page_ttl_seconds"`
}

// AuthConfig holds the static bearer token accepted by the HTTP surface.
// Session semantics live with the host; the core only needs authorized-or-not
// plus an identity string for logging.
type AuthConfig struct {
	BearerToken string `mapstructure:"bearer_token"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the process-wide configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Models  ModelsConfig  `mapstructure:"models"`
	Budget  BudgetConfig  `mapstructure:"budget"`
	Search  SearchConfig  `mapstructure:"search"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`

	OpenAIAPIKey    string `mapstructure:"-"`
	AnthropicAPIKey string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("models.reasoning", "gpt-5.2-instant")
	v.SetDefault("models.synthesis", "claude-sonnet-4-20250514")
	v.SetDefault("budget.time_ms", 25000)
	v.SetDefault("budget.searches", 4)
	v.SetDefault("budget.fetches", 12)
	v.SetDefault("budget.tokens", 24000)
	v.SetDefault("search.default_k", 8)
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("cache.answer_ttl_seconds", 7*24*3600)
	v.SetDefault("cache.search_ttl_seconds", 3600)
	v.SetDefault("cache.page_ttl_seconds", 6*3600)
	v.SetDefault("logging.level", "info")
}

// Load reads deepanswer.yaml from CONFIG_PATH (or the working directory) and
// merges environment overrides for secrets. A missing config file is not an
// error; env plus defaults is a complete configuration.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("deepanswer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/deepanswer")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgPath != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	if v := os.Getenv("SERPER_API_KEY"); v != "" {
		cfg.Search.SerperAPIKey = v
	}
	if v := os.Getenv("BRAVE_API_KEY"); v != "" {
		cfg.Search.BraveAPIKey = v
	}
	if v := os.Getenv("JINA_API_KEY"); v != "" {
		cfg.Fetch.JinaAPIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DEEPANSWER_BEARER_TOKEN"); v != "" {
		cfg.Auth.BearerToken = v
	}
}

// Validate checks for the unrecoverable-configuration error class: the
// pipeline cannot start without at least one LLM key and one search provider.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" {
		return ErrNoLLMProvider
	}
	if c.Search.SerperAPIKey == "" && c.Search.BraveAPIKey == "" {
		return ErrNoSearchProvider
	}
	return nil
}

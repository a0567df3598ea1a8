package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Aiden-Hyun/deepanswer/internal/cache"
	"github.com/Aiden-Hyun/deepanswer/internal/config"
	"github.com/Aiden-Hyun/deepanswer/internal/orchestrator"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/fetch"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/llm"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/rerank"
	"github.com/Aiden-Hyun/deepanswer/internal/providers/search"
	"github.com/Aiden-Hyun/deepanswer/internal/research"
	"github.com/Aiden-Hyun/deepanswer/internal/router"
	"github.com/Aiden-Hyun/deepanswer/internal/synthesis"
)

type app struct {
	cfg      *config.Config
	watcher  *config.Watcher
	logger   *zap.Logger
	store    *cache.Store
	workflow *orchestrator.Workflow
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// buildApp assembles the full pipeline from configuration. Provider
// registries are explicit: constructed once here, passed in, never global.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	var llmProviders []llm.Provider
	if cfg.OpenAIAPIKey != "" {
		p, err := llm.NewOpenAIProvider(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		llmProviders = append(llmProviders, p)
	}
	if cfg.AnthropicAPIKey != "" {
		p, err := llm.NewAnthropicProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		llmProviders = append(llmProviders, p)
	}
	llmMgr := llm.NewManager(llmProviders, logger)
	if !llmMgr.Available() {
		return nil, config.ErrNoLLMProvider
	}

	var searchProviders []search.Provider
	if cfg.Search.SerperAPIKey != "" {
		searchProviders = append(searchProviders, search.NewSerperProvider(cfg.Search.SerperAPIKey))
	}
	if cfg.Search.BraveAPIKey != "" {
		searchProviders = append(searchProviders, search.NewBraveProvider(cfg.Search.BraveAPIKey))
	}
	searchMgr := search.NewManager(searchProviders, store,
		time.Duration(cfg.Cache.SearchTTLSeconds)*time.Second, logger)
	if !searchMgr.Available() {
		return nil, config.ErrNoSearchProvider
	}

	fetcher := fetch.New(cfg.Fetch.JinaAPIKey, cfg.Fetch.Timeout, store,
		time.Duration(cfg.Cache.PageTTLSeconds)*time.Second, logger)
	reranker := rerank.New(cfg.Fetch.JinaAPIKey, logger)

	executor := research.NewExecutor(searchMgr, fetcher, reranker, logger)
	planner := research.NewPlanner(llmMgr, cfg.Models.Reasoning, logger)
	loop := research.NewLoop(planner, executor, logger)

	watcher := config.NewWatcher(configFilePath(), cfg, logger)

	workflow := orchestrator.New(
		watcher,
		llmMgr,
		router.New(llmMgr, cfg.Models.Reasoning, logger),
		research.NewFacetManager(llmMgr, cfg.Models.Reasoning, logger),
		research.NewDecomposer(llmMgr, cfg.Models.Reasoning, logger),
		loop,
		synthesis.NewEngine(llmMgr, cfg.Models.Synthesis, logger),
		store,
		logger,
	)

	return &app{cfg: cfg, watcher: watcher, logger: logger, store: store, workflow: workflow}, nil
}

// configFilePath returns the explicit config file to hot-reload, if any.
func configFilePath() string {
	return os.Getenv("CONFIG_PATH")
}

func (a *app) close() {
	_ = a.store.Close()
	_ = a.logger.Sync()
}

package config

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-reads the config file on change and swaps the tunable sections
// (budget defaults and cache TTLs) atomically. Secrets and listener addresses
// are not hot-reloaded; those require a restart.
type Watcher struct {
	path    string
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu  sync.RWMutex
	cur *Config
}

// NewWatcher wraps an already-loaded config. path may be empty, in which case
// Current always returns the initial config and Start is a no-op.
func NewWatcher(path string, initial *Config, logger *zap.Logger) *Watcher {
	return &Watcher{path: path, logger: logger, cur: initial}
}

// Current returns the latest merged configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Start watches the config file until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.path); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	go func() {
		defer fw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.reload()
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("Config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (w *Watcher) reload() {
	fresh, err := Load()
	if err != nil {
		w.logger.Warn("Config reload failed, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	prev := w.cur
	next := *prev
	next.Budget = fresh.Budget
	next.Cache = fresh.Cache
	next.Search.DefaultK = fresh.Search.DefaultK
	w.cur = &next
	w.mu.Unlock()

	w.logger.Info("Config reloaded",
		zap.Int64("budget_time_ms", next.Budget.TimeMs),
		zap.Int("budget_searches", next.Budget.Searches),
		zap.Int("budget_fetches", next.Budget.Fetches),
	)
}

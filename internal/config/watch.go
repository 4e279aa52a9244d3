package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces bursts of write events from editors.
const DefaultDebounce = 200 * time.Millisecond

type WatchOption func(*watchOptions)

type watchOptions struct {
	logger   *zap.Logger
	debounce time.Duration
}

func WithWatchLogger(l *zap.Logger) WatchOption {
	return func(o *watchOptions) { o.logger = l }
}

func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) { o.debounce = d }
}

// Watch reloads path whenever it changes and passes every config that
// loads and validates to fn. Invalid files are logged and skipped. Events
// are taken from the parent directory, filtered to path. Watch blocks until
// ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config), opts ...WatchOption) error {
	o := watchOptions{logger: zap.NewNop(), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	o.logger.Info("watching config", zap.String("path", abs))

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			o.logger.Debug("config changed", zap.String("op", event.Op.String()))
			debounce.Reset(o.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.logger.Error("watcher error", zap.Error(err))

		case <-debounce.C:
			cfg, err := Load(abs)
			if err != nil {
				o.logger.Warn("config reload failed", zap.Error(err))
				continue
			}
			o.logger.Info("config reloaded", zap.String("variant", cfg.Variant))
			fn(cfg)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Copyright (c) 2026 md-qa authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor produces on save.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads one config file whenever it changes on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		watcher:  w,
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger,
	}, nil
}

// Watch starts monitoring and emits the freshly loaded config after each
// change. The parent directory is watched so that atomic replace-by-rename
// saves are seen. A file that fails to load is logged and skipped. The
// channel is closed when ctx ends or the watcher is stopped.
func (w *Watcher) Watch(ctx context.Context) (<-chan Config, error) {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return nil, err
	}

	configs := make(chan Config, 1)

	go func() {
		defer close(configs)
		defer w.watcher.Close()

		var reload <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				reload = time.After(w.debounce)
			case <-reload:
				reload = nil
				c, err := Load(w.path)
				if err != nil {
					w.logger.Warn("config reload failed", "path", w.path, "error", err)
					continue
				}
				w.logger.Debug("config reloaded", "path", w.path)
				select {
				case configs <- c:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", "error", err)
			}
		}
	}()

	return configs, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

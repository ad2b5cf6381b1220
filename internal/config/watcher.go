package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the config file and invokes a callback with the
// reloaded, validated config. Editors replace files rather than write
// them in place, so the parent directory is watched and events are
// debounced.
type Watcher struct {
	path     string
	onChange func(*Config)
	watcher  *fsnotify.Watcher

	pendingMu    sync.Mutex
	pendingAt    time.Time
	pending      bool
	debounceTime time.Duration
}

// NewWatcher creates a config watcher. onChange receives every
// successfully reloaded config.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:         path,
		onChange:     onChange,
		watcher:      watcher,
		debounceTime: 500 * time.Millisecond,
	}, nil
}

// Watch starts watching for config changes. It blocks until the
// context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	slog.Info("watching config for changes", "path", w.path)

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping config watcher")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingAt = time.Now()
	w.pendingMu.Unlock()

	slog.Debug("config file changed", "op", event.Op.String())
}

// processDebounced reloads once the file has been stable for the
// debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pendingMu.Lock()
			ready := w.pending && time.Since(w.pendingAt) >= w.debounceTime
			if ready {
				w.pending = false
			}
			w.pendingMu.Unlock()

			if ready {
				w.reload()
			}
		}
	}
}

// reload loads and validates the config, invoking the callback only
// when the new config is usable.
func (w *Watcher) reload() {
	cfg, warnings, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous config", "error", err)
		return
	}
	for _, warning := range warnings {
		slog.Warn(warning)
	}
	if errs := Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			slog.Warn("config invalid, keeping previous config", "error", e)
		}
		return
	}

	slog.Info("config reloaded")
	w.onChange(cfg)
}

// Close closes the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

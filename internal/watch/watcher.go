// Package watch re-runs suite validation whenever the files under a suite
// path change. Watches are registered recursively, since a suite commonly
// spreads over nested config directories and fsnotify watches are flat.
package watch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/macaw-rl/macawlab/internal/ctxlog"
	"github.com/macaw-rl/macawlab/internal/fsutil"
)

// debounce collapses editor save bursts into a single reload.
const debounce = 250 * time.Millisecond

// OnChange is invoked after each debounced batch of file events.
type OnChange func(ctx context.Context)

// Watcher watches a suite path for changes.
type Watcher struct {
	path     string
	onChange OnChange
}

// New creates a Watcher over path. The callback runs on the watcher's
// goroutine once per debounced change batch.
func New(path string, onChange OnChange) *Watcher {
	return &Watcher{path: path, onChange: onChange}
}

// Run blocks, dispatching change events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	targets, err := w.watchTargets()
	if err != nil {
		return err
	}
	for _, target := range targets {
		if err := watcher.Add(target); err != nil {
			return fmt.Errorf("failed to watch %s: %w", target, err)
		}
	}
	logger.Info("👀 Watching for changes", "path", w.path, "targets", len(targets))

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("File event received.", "event", event.String())

			// New directories must be added to the watch set.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.Warn("Failed to watch new directory.", "path", event.Name, "error", err)
					}
				}
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				w.onChange(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error.", "error", err)
		}
	}
}

// watchTargets resolves the set of paths to register: the path itself for a
// file, or every directory under it for a directory.
func (w *Watcher) watchTargets() ([]string, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch path: %w", err)
	}
	if !info.IsDir() {
		return []string{w.path}, nil
	}

	dirs, err := fsutil.SubDirs(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate watch directories: %w", err)
	}
	return dirs, nil
}

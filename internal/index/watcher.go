package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Invalidator receives change notifications from the watcher.
// Satisfied by *Manager.
type Invalidator interface {
	Invalidate()
}

// Watcher watches the document folder and invalidates the index cache when
// files change, so the next request re-runs the staleness check immediately
// instead of waiting for the in-memory engine to be dropped some other way.
// The mtime comparison stays authoritative; the watcher is only a nudge.
type Watcher struct {
	watcher *fsnotify.Watcher
	target  Invalidator
	logger  *slog.Logger
}

// NewWatcher creates a watcher over dir that calls target.Invalidate on
// create, write, remove, or rename events.
func NewWatcher(dir string, target Invalidator, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %q: %w", dir, err)
	}

	return &Watcher{
		watcher: fw,
		target:  target,
		logger:  logger,
	}, nil
}

// Run processes events until ctx is canceled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("document folder changed", "file", event.Name, "op", event.Op.String())
			w.target.Invalidate()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Close stops the watcher. Run returns once the event channel drains.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Package watcher rebuilds files as they change. Filesystem events are
// consumed by a single dispatcher loop; an optional Supervisor restarts a
// child process after every successful rebuild.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/bndl/internal/ctxlog"
)

// Rebuilder rebuilds the output for a single changed path. A nil error
// means the rebuild fully succeeded.
type Rebuilder interface {
	Rebuild(ctx context.Context, path string) error
}

// RebuildFunc adapts a function to Rebuilder.
type RebuildFunc func(ctx context.Context, path string) error

// Rebuild implements Rebuilder.
func (f RebuildFunc) Rebuild(ctx context.Context, path string) error {
	return f(ctx, path)
}

// Restarter is told about every successful rebuild. *Supervisor satisfies
// it.
type Restarter interface {
	Restart() error
}

// Notifier announces successful rebuilds to interested listeners.
type Notifier interface {
	Notify(ctx context.Context, path string) error
}

// Watcher watches a directory tree and dispatches rebuilds.
type Watcher struct {
	root      string
	filter    Filter
	rebuilder Rebuilder
	restarter Restarter
	notifier  Notifier

	fsw *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRestarter restarts r after each successful rebuild.
func WithRestarter(r Restarter) Option {
	return func(w *Watcher) { w.restarter = r }
}

// WithNotifier announces each successful rebuild through n.
func WithNotifier(n Notifier) Option {
	return func(w *Watcher) { w.notifier = n }
}

// New creates a Watcher for the tree at root.
func New(root string, filter Filter, rebuilder Rebuilder, opts ...Option) *Watcher {
	w := &Watcher{root: root, filter: filter, rebuilder: rebuilder}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is canceled. It returns an error only when the
// underlying watcher fails; such errors end the watch.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer fsw.Close()
	w.fsw = fsw

	if err := w.addTree(ctx, w.root); err != nil {
		return err
	}
	logger.Info("👀 Watching for changes.", "root", w.root)

	return w.Dispatch(ctx, fsw.Events, fsw.Errors)
}

// Dispatch is the event loop. Events are handled one at a time in arrival
// order; a rebuild always finishes before the next event is looked at.
func (w *Watcher) Dispatch(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	logger := ctxlog.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			return fmt.Errorf("filesystem watcher failed: %w", err)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			logger.Debug("Incoming event.", "event", ev.String())
			w.handle(ctx, ev)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	logger := ctxlog.FromContext(ctx)

	if ev.Has(fsnotify.Create) && w.fsw != nil && !w.filter.Ignored(ev.Name) {
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ctx, ev.Name); err != nil {
				logger.Warn("Failed to watch new directory.", "dir", ev.Name, "error", err)
			}
		}
	}

	if !w.filter.Accept(ev) {
		logger.Debug("Ignoring event.", "path", ev.Name, "op", ev.Op.String())
		return
	}

	logger.Info("🔁 File changed, rebuilding.", "path", ev.Name)
	ctx = ctxlog.With(ctx, "trigger", ev.Name)
	logger = ctxlog.FromContext(ctx)
	if err := w.rebuilder.Rebuild(ctx, ev.Name); err != nil {
		logger.Error("Rebuild failed, keeping the previous process running.", "path", ev.Name, "error", err)
		return
	}

	if w.restarter != nil {
		if err := w.restarter.Restart(); err != nil {
			logger.Error("Failed to restart process.", "error", err)
		}
	}
	if w.notifier != nil {
		if err := w.notifier.Notify(ctx, ev.Name); err != nil {
			logger.Warn("Failed to send rebuild notification.", "error", err)
		}
	}
}

// addTree adds dir and every directory below it, skipping ignored paths and
// symlinks.
func (w *Watcher) addTree(ctx context.Context, dir string) error {
	logger := ctxlog.FromContext(ctx)
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (d.Type()&fs.ModeSymlink != 0 || w.filter.Ignored(path) || d.Name() == ".git") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		logger.Debug("Watching directory.", "dir", path)
		return nil
	})
}

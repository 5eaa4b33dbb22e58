package manifest

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher observes a manifest file and re-publishes the registry snapshot on
// change. Events are debounced so editors that write in several syscalls
// trigger a single reload. Invalid reloads never replace the good snapshot.
type Watcher struct {
	registry *Registry
	path     string
	debounce time.Duration
	logger   *zap.Logger

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
}

// WatcherOption configures the Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce delay for file events.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// NewWatcher creates a watcher for the given registry and manifest path.
func NewWatcher(registry *Registry, path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		registry: registry,
		path:     path,
		debounce: 100 * time.Millisecond,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	w.fsw = fsw
	return w, nil
}

// Start begins watching. It returns immediately; reloads happen on a
// background goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
	w.logger.Info("manifest watcher started",
		zap.String("path", w.path),
		zap.Duration("debounce", w.debounce),
	)
}

// Stop stops the watcher and releases the fsnotify handle.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				schedule()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("manifest watch error", zap.Error(err))
		case <-fire:
			if err := w.registry.LoadPath(w.path); err != nil {
				// Registry already logged and kept the previous snapshot.
				continue
			}
			// Renames replace the inode on some editors; re-arm the watch.
			_ = w.fsw.Add(w.path)
		}
	}
}

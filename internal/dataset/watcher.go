package dataset

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a Cache when one of its source files changes on disk.
// Bursts of events (editors, copy tools) are collapsed into one reload after
// the debounce window has been quiet.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	cache       *Cache
	logger      *zap.Logger
	files       map[string]bool // absolute source paths
	pending     time.Time       // zero when no reload is due
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	reloads     int
}

// NewWatcher creates a watcher for the cache's source files.
func NewWatcher(cache *Cache, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	files := make(map[string]bool)
	for _, src := range cache.Sources() {
		p := src.Path
		if !filepath.IsAbs(p) && cache.Dir() != "" {
			p = filepath.Join(cache.Dir(), p)
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		files[filepath.Clean(p)] = true
	}

	return &Watcher{
		watcher:     fw,
		cache:       cache,
		logger:      logger,
		files:       files,
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start watches the directories containing the source files. Directories are
// watched instead of files so that atomic replace (write temp + rename) is
// seen. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := w.watcher.Add(d); err != nil {
			w.logger.Warn("cannot watch dataset directory", zap.String("dir", d), zap.Error(err))
			continue
		}
		w.logger.Debug("watching dataset directory", zap.String("dir", d))
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("closing dataset watcher", zap.Error(err))
	}
}

// Reloads reports how many reloads the watcher has triggered.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(w.debounceDur / 5)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("dataset watcher", zap.Error(err))

		case <-tick.C:
			w.processPending(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	if !w.files[name] {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.logger.Debug("dataset file changed", zap.String("file", name), zap.String("op", event.Op.String()))
	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

// processPending reloads once the last event is older than the debounce window.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	due := !w.pending.IsZero() && time.Since(w.pending) >= w.debounceDur
	if due {
		w.pending = time.Time{}
		w.reloads++
	}
	w.mu.Unlock()

	if due {
		s := w.cache.Reload(ctx)
		w.logger.Info("dataset reloaded after file change", zap.Int("generation", s.Generation))
	}
}

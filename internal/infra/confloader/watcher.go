package confloader

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

// DefaultMinInterval is the shortest gap between two change notifications.
const DefaultMinInterval = 500 * time.Millisecond

// Watcher watches the configuration script for changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	callbacks []func(string)
	mu        sync.RWMutex
	done      chan struct{}
	stopOnce  sync.Once
	logger    logger.Logger

	// files holds the cleaned paths being watched.
	files map[string]bool

	limiter *rate.Limiter
	// pending holds notifications deferred by the limiter, by path.
	pending map[string]*time.Timer
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithMinInterval sets the shortest gap between notifications. Events
// arriving sooner are coalesced into one deferred notification.
func WithMinInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// NewWatcher creates a new configuration file watcher.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:   fw,
		callbacks: make([]func(string), 0),
		done:      make(chan struct{}),
		logger:    logger.Default(),
		files:     make(map[string]bool),
		limiter:   rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
		pending:   make(map[string]*time.Timer),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Watch adds a file to watch. Events for other files in the same
// directory are ignored.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)
	// Watch the directory, not the file, to catch vim-style renames
	dir := filepath.Dir(path)
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Error("failed to watch directory",
			"path", dir,
			"error", err,
		)
		return err
	}

	w.mu.Lock()
	w.files[path] = true
	w.mu.Unlock()

	w.logger.Debug("watching directory for changes",
		"path", dir,
		"file", filepath.Base(path),
	)
	return nil
}

// OnChange registers a callback to be called when a watched file changes.
// The callback receives the path of the changed file.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start starts watching for changes.
// This function blocks until Stop() is called.
func (w *Watcher) Start() {
	w.logger.Info("configuration watcher started")

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Debug("watcher events channel closed")
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.watched(event.Name) {
				continue
			}
			w.logger.Debug("configuration file changed",
				"file", event.Name,
				"op", event.Op.String(),
			)
			w.schedule(filepath.Clean(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Debug("watcher errors channel closed")
				return
			}
			w.logger.Error("configuration watcher error",
				"error", err,
			)
		case <-w.done:
			w.logger.Debug("watcher received stop signal")
			return
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher and drops deferred notifications. It is safe to
// call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()

		if err = w.watcher.Close(); err != nil {
			w.logger.Error("failed to close watcher",
				"error", err,
			)
			return
		}
		w.logger.Info("configuration watcher stopped")
	})
	return err
}

func (w *Watcher) watched(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[filepath.Clean(name)]
}

// schedule notifies now if the limiter allows it, otherwise once the
// limiter frees up. At most one deferred notification per file is queued.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	if _, queued := w.pending[path]; queued {
		w.mu.Unlock()
		return
	}
	delay := w.limiter.Reserve().Delay()
	if delay > 0 {
		w.pending[path] = time.AfterFunc(delay, func() {
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()

			select {
			case <-w.done:
				return
			default:
			}
			w.notifyCallbacks(path)
		})
	}
	w.mu.Unlock()

	if delay == 0 {
		w.notifyCallbacks(path)
	}
}

// notifyCallbacks calls all registered callbacks.
func (w *Watcher) notifyCallbacks(path string) {
	w.mu.RLock()
	callbacks := make([]func(string), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		cb(path)
	}
}

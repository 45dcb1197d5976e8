// Package watch reports debounced batches of file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yacobolo/twmangle/internal/logging"
)

// Filter reports whether a changed path is of interest.
type Filter func(path string) bool

// Handler receives the de-duplicated, sorted paths of one batch.
type Handler func(paths []string)

// Watcher watches directories (not recursively) and groups rapid changes.
type Watcher struct {
	fs     *fsnotify.Watcher
	delay  time.Duration
	filter Filter
	logger logging.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	closed  bool
	batches chan []string
}

// New creates a watcher. A nil filter accepts every path.
func New(delay time.Duration, filter Filter, logger logging.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Watcher{
		fs:      fs,
		delay:   delay,
		filter:  filter,
		logger:  logger.WithComponent("watch"),
		pending: make(map[string]struct{}),
		batches: make(chan []string, 1),
	}, nil
}

// Add starts watching dirs.
func (w *Watcher) Add(dirs ...string) error {
	for _, d := range dirs {
		if err := w.fs.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}
	return nil
}

// Run delivers batches to handle until ctx is done, then closes the watcher.
// handle runs on the calling goroutine, one batch at a time.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.add(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			// Log error but continue watching
			w.logger.Warn(err, "file watcher error")
		case paths := <-w.batches:
			handle(paths)
		}
	}
}

func (w *Watcher) add(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(event.Name)
	if w.filter != nil && !w.filter(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	select {
	case w.batches <- paths:
		w.pending = make(map[string]struct{})
	default:
		// A batch is still being handled; keep these pending and retry.
		w.timer = time.AfterFunc(w.delay, w.flush)
	}
	w.mu.Unlock()
}

func (w *Watcher) close() {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	_ = w.fs.Close()
}

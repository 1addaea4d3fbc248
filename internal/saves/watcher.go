package saves

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"savesmith/internal/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Event reports that files in the saves directory changed.
type Event struct {
	Paths []string
	At    time.Time
}

// Watcher watches a saves directory and its immediate subdirectories (one
// per save game) and emits debounced change events.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	clock    clockwork.Clock
	debounce time.Duration
	logger   *zap.Logger

	events  chan Event
	pending map[string]struct{}
	timer   clockwork.Timer

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stopped bool
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets how long the directory must be quiet before an event
// is emitted.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatchClock sets the time source for debouncing.
func WithWatchClock(c clockwork.Clock) WatchOption {
	return func(w *Watcher) { w.clock = c }
}

// NewWatcher creates a watcher for dir. Call Start to begin watching.
func NewWatcher(dir string, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		dir:      dir,
		clock:    clockwork.NewRealClock(),
		debounce: 500 * time.Millisecond,
		logger:   logging.Get(logging.CategorySaves),
		events:   make(chan Event, 1),
		pending:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.debounce <= 0 {
		w.debounce = 500 * time.Millisecond
	}
	return w, nil
}

// Events delivers change notifications. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("cannot list saves directory", zap.String("dir", w.dir), zap.Error(err))
	}
	for _, e := range entries {
		if e.IsDir() && !ignored(e.Name()) {
			w.addDir(filepath.Join(w.dir, e.Name()))
		}
	}
	w.logger.Info("watching saves directory", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))

	go w.run(ctx)
	return nil
}

// Stop stops watching and closes Events.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	wasRunning := w.running
	w.running = false
	w.stopped = true
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("error closing watcher", zap.Error(err))
	}

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.events)
	w.mu.Unlock()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

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
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || ignored(filepath.Base(event.Name)) {
		return
	}
	w.logger.Debug("saves changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && filepath.Dir(event.Name) == w.dir {
			w.addDir(event.Name)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.pending[event.Name] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.debounce, w.flush)
}

// flush emits the pending paths. If the consumer has not read the previous
// event yet, the two are merged.
func (w *Watcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || len(w.pending) == 0 {
		return
	}

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})

	select {
	case prev := <-w.events:
		paths = mergePaths(prev.Paths, paths)
	default:
	}
	sort.Strings(paths)
	w.events <- Event{Paths: paths, At: w.clock.Now()}
}

func (w *Watcher) addDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("cannot watch save folder", zap.String("dir", dir), zap.Error(err))
	}
}

func mergePaths(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// ignored filters editor swap files and hidden files.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".tmp")
}

// Package editor routes the active editor tab to the character subsystems it
// needs and loads them in parallel.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"savesmith/internal/character"
	"savesmith/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownTab is returned when selecting a tab that does not exist.
var ErrUnknownTab = errors.New("unknown tab")

// Loader loads one subsystem. *character.Session implements it.
type Loader interface {
	Load(ctx context.Context, name character.Name, force bool) (character.Snapshot, error)
}

// Selection is the outcome of loading a tab.
type Selection struct {
	Tab Tab
	// Seq identifies the selection; see Router.IsCurrent.
	Seq       uint64
	Snapshots map[character.Name]character.Snapshot
	// Errors holds per-subsystem failures. A failing subsystem does not
	// affect its siblings.
	Errors map[character.Name]error
}

// Failed reports whether any subsystem of the tab failed to load.
func (s Selection) Failed() bool { return len(s.Errors) > 0 }

// Err joins the per-subsystem errors, or returns nil.
func (s Selection) Err() error {
	if len(s.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(s.Errors))
	for _, name := range character.AllNames {
		if err, ok := s.Errors[name]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Router tracks the active tab.
type Router struct {
	loader Loader
	logger *zap.Logger

	mu     sync.Mutex
	active Tab
	seq    uint64
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter creates a router starting on the overview tab.
func NewRouter(loader Loader, opts ...RouterOption) *Router {
	r := &Router{
		loader: loader,
		logger: logging.Get(logging.CategoryEditor),
		active: TabOverview,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Active returns the active tab.
func (r *Router) Active() Tab {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Activate makes t the active tab without loading and returns the new
// selection sequence.
func (r *Router) Activate(t Tab) (uint64, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTab, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = t
	r.seq++
	return r.seq, nil
}

// Current returns the active tab and its selection sequence.
func (r *Router) Current() (Tab, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.seq
}

// IsCurrent reports whether seq is still the latest selection.
func (r *Router) IsCurrent(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq == seq
}

// Select activates t and loads all of its subsystems concurrently.
func (r *Router) Select(ctx context.Context, t Tab) (Selection, error) {
	seq, err := r.Activate(t)
	if err != nil {
		return Selection{Tab: t}, err
	}
	return r.LoadTab(ctx, t, seq), nil
}

// LoadTab loads the subsystems of t for a selection previously made with
// Activate. Callers that activate synchronously and load in the background
// use it to keep tab order and sequence numbers in step.
func (r *Router) LoadTab(ctx context.Context, t Tab, seq uint64) Selection {
	return r.load(ctx, t, seq, tabSubsystems[t], false)
}

// Refresh force-reloads the subsystems of the active tab.
func (r *Router) Refresh(ctx context.Context) Selection {
	r.mu.Lock()
	t, seq := r.active, r.seq
	r.mu.Unlock()
	return r.load(ctx, t, seq, tabSubsystems[t], true)
}

// LoadNames loads arbitrary subsystems in parallel without changing the
// active tab. The result carries no tab.
func (r *Router) LoadNames(ctx context.Context, names []character.Name) Selection {
	r.mu.Lock()
	seq := r.seq
	r.mu.Unlock()
	return r.load(ctx, "", seq, names, false)
}

func (r *Router) load(ctx context.Context, t Tab, seq uint64, names []character.Name, force bool) Selection {
	sel := Selection{
		Tab:       t,
		Seq:       seq,
		Snapshots: make(map[character.Name]character.Snapshot, len(names)),
	}

	timer := logging.StartTimer(logging.CategoryEditor, fmt.Sprintf("load %d subsystems for %q", len(names), t))
	defer timer.Stop()

	var mu sync.Mutex
	// The group is not bound to a context: one failure must not cancel
	// the sibling loads.
	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			snap, err := r.loader.Load(ctx, name, force)
			mu.Lock()
			defer mu.Unlock()
			sel.Snapshots[name] = snap
			if err != nil {
				if sel.Errors == nil {
					sel.Errors = make(map[character.Name]error)
				}
				sel.Errors[name] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	if sel.Failed() {
		r.logger.Warn("tab loaded with errors",
			zap.String("tab", string(t)),
			zap.Int("failed", len(sel.Errors)),
			zap.Error(sel.Err()))
	} else {
		r.logger.Debug("tab loaded", zap.String("tab", string(t)), zap.Uint64("seq", seq))
	}
	return sel
}

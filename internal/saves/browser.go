// Package saves browses save files and backups through the backend and
// watches the local saves directory for changes made by the game.
package saves

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"savesmith/internal/backend"
	"savesmith/internal/logging"

	"go.uber.org/zap"
)

// Kind selects which listing a Browser shows.
type Kind int

const (
	KindSaves Kind = iota
	KindBackups
)

func (k Kind) String() string {
	if k == KindBackups {
		return "backups"
	}
	return "saves"
}

// DefaultPageSize is used when a Browser is created with a non-positive limit.
const DefaultPageSize = 50

// Lister lists directory pages. *backend.Client implements it.
type Lister interface {
	ListSaves(ctx context.Context, q backend.ListQuery) (*backend.FileList, error)
	ListBackups(ctx context.Context, q backend.ListQuery) (*backend.FileList, error)
}

// Page is one page of a listing.
type Page struct {
	Seq    uint64 // browser position the page was listed for
	Kind   Kind
	Path   string
	Files  []backend.FileInfo
	Offset int
	Limit  int
	Total  int
}

// HasNext reports whether a later page exists.
func (p *Page) HasNext() bool { return p.Offset+len(p.Files) < p.Total }

// HasPrev reports whether an earlier page exists.
func (p *Page) HasPrev() bool { return p.Offset > 0 }

// PageNumber returns the 1-based page index.
func (p *Page) PageNumber() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// PageCount returns the number of pages, at least 1.
func (p *Page) PageCount() int {
	if p.Limit <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// ErrSuperseded is returned by a listing that finished after the browser
// moved to another position.
var ErrSuperseded = errors.New("listing superseded by a newer position")

// Browser keeps the position in a paginated listing. Every move bumps a
// sequence number; a listing started before the move is not applied.
type Browser struct {
	lister Lister
	logger *zap.Logger

	mu     sync.Mutex
	seq    uint64
	kind   Kind
	path   string
	root   string // what the backend reports for an empty path
	offset int
	limit  int
	last   *Page
}

// position is a snapshot of where a listing was requested.
type position struct {
	seq  uint64
	kind Kind
	q    backend.ListQuery
}

// NewBrowser creates a browser over lister showing limit entries per page.
func NewBrowser(lister Lister, limit int) *Browser {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return &Browser{
		lister: lister,
		logger: logging.Get(logging.CategorySaves),
		limit:  limit,
	}
}

// Kind returns the listing being browsed.
func (b *Browser) Kind() Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kind
}

// Current returns the last loaded page, or nil.
func (b *Browser) Current() *Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// IsCurrent reports whether a page with sequence seq still matches the
// browser position.
func (b *Browser) IsCurrent(seq uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq == seq
}

func (b *Browser) positionLocked() position {
	return position{
		seq:  b.seq,
		kind: b.kind,
		q:    backend.ListQuery{Path: b.path, Limit: b.limit, Offset: b.offset},
	}
}

// move applies change under the lock, bumps the sequence and loads the
// new position.
func (b *Browser) move(ctx context.Context, change func()) (*Page, error) {
	b.mu.Lock()
	change()
	b.seq++
	pos := b.positionLocked()
	b.mu.Unlock()
	return b.load(ctx, pos)
}

// Load fetches the page at the current position.
func (b *Browser) Load(ctx context.Context) (*Page, error) {
	b.mu.Lock()
	pos := b.positionLocked()
	b.mu.Unlock()
	return b.load(ctx, pos)
}

func (b *Browser) load(ctx context.Context, pos position) (*Page, error) {
	kind, q := pos.kind, pos.q

	var (
		list *backend.FileList
		err  error
	)
	if kind == KindBackups {
		list, err = b.lister.ListBackups(ctx, q)
	} else {
		list, err = b.lister.ListSaves(ctx, q)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seq != pos.seq {
		b.logger.Debug("discarding listing for previous position",
			zap.Stringer("kind", kind), zap.String("path", q.Path), zap.Int("offset", q.Offset))
		return nil, ErrSuperseded
	}
	if err != nil {
		b.logger.Warn("listing failed", zap.Stringer("kind", kind), zap.String("path", q.Path), zap.Error(err))
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}

	page := &Page{
		Seq:    pos.seq,
		Kind:   kind,
		Path:   list.CurrentPath,
		Files:  list.Files,
		Offset: q.Offset,
		Limit:  q.Limit,
		Total:  list.TotalCount,
	}
	if page.Path == "" {
		page.Path = q.Path
	}
	if q.Path == "" {
		b.root = page.Path
	}
	b.path = page.Path
	b.last = page

	b.logger.Debug("listed",
		zap.Stringer("kind", kind),
		zap.String("path", page.Path),
		zap.Int("offset", page.Offset),
		zap.Int("files", len(page.Files)),
		zap.Int("total", page.Total))
	return page, nil
}

// Next moves to the following page and loads it. At the last page it
// reloads the current one.
func (b *Browser) Next(ctx context.Context) (*Page, error) {
	return b.move(ctx, func() {
		if b.last != nil && b.last.HasNext() {
			b.offset += b.limit
		}
	})
}

// Prev moves to the preceding page and loads it.
func (b *Browser) Prev(ctx context.Context) (*Page, error) {
	return b.move(ctx, func() {
		b.offset = max(b.offset-b.limit, 0)
	})
}

// Enter descends into dir and loads its first page.
func (b *Browser) Enter(ctx context.Context, dir string) (*Page, error) {
	return b.move(ctx, func() {
		b.path = dir
		b.offset = 0
	})
}

// AtRoot reports whether the browser shows the top of the listing.
func (b *Browser) AtRoot() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path == "" || b.path == b.root
}

// Up moves to the parent directory. At the root it reloads.
func (b *Browser) Up(ctx context.Context) (*Page, error) {
	return b.move(ctx, func() {
		if b.path != "" && b.path != b.root {
			parent := path.Dir(b.path)
			if parent == "." || parent == "/" || len(parent) < len(b.root) {
				parent = ""
			}
			b.path = parent
		}
		b.offset = 0
	})
}

// SetKind switches between saves and backups, resetting the position.
func (b *Browser) SetKind(ctx context.Context, kind Kind) (*Page, error) {
	return b.move(ctx, func() {
		b.kind = kind
		b.path = ""
		b.root = ""
		b.offset = 0
		b.last = nil
	})
}

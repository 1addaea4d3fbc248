// Package character holds the loaded character and a per-subsystem cache of
// its data.
//
// A Session is the single owner of the current character. Subsystem reads go
// through Load, which serves cached data, shares concurrent fetches and never
// lets a fetch that started before a Close, Open or Invalidate overwrite
// newer state. Mutations go through the backend and invalidate the
// subsystems listed in Dependencies.
package character

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"savesmith/internal/backend"
	"savesmith/internal/logging"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoCharacter is returned when no character is open.
	ErrNoCharacter = errors.New("no character loaded")
	// ErrSessionClosed is returned when the character was closed or
	// replaced while a call was in progress.
	ErrSessionClosed = errors.New("character session closed")
	// ErrSuperseded is returned when a subsystem kept being invalidated
	// while its fetch was in flight.
	ErrSuperseded = errors.New("subsystem invalidated during fetch")
)

// maxSupersededRetries bounds how often Load refetches after its result was
// discarded by a concurrent invalidation.
const maxSupersededRetries = 3

// Backend is the subset of the backend client a Session needs.
type Backend interface {
	ImportCharacter(ctx context.Context, filePath string) (*backend.Character, error)
	GetCharacter(ctx context.Context, id int64) (*backend.Character, error)
	GetSubsystem(ctx context.Context, id int64, subsystem string) (json.RawMessage, error)

	AddFeat(ctx context.Context, id int64, featID int) (*backend.MutationResult, error)
	RemoveFeat(ctx context.Context, id int64, featID int) (*backend.MutationResult, error)
	AddSpell(ctx context.Context, id int64, req backend.SpellRequest) (*backend.MutationResult, error)
	RemoveSpell(ctx context.Context, id int64, req backend.SpellRequest) (*backend.MutationResult, error)
	EquipItem(ctx context.Context, id int64, req backend.EquipRequest) (*backend.MutationResult, error)
	UnequipItem(ctx context.Context, id int64, slot string) (*backend.MutationResult, error)
	DeleteItem(ctx context.Context, id int64, inventoryIndex int) (*backend.MutationResult, error)
	UpdateGold(ctx context.Context, id int64, gold int64) (*backend.MutationResult, error)
	SaveCharacter(ctx context.Context, id int64, createBackup bool) (*backend.MutationResult, error)
}

// Session owns the currently open character and its subsystem cache.
type Session struct {
	id      string
	backend Backend
	clock   clockwork.Clock
	logger  *zap.Logger

	flights singleflight.Group

	mu        sync.Mutex
	character *backend.Character
	dirty     bool
	// epoch increments on every Open and Close.
	epoch   uint64
	entries map[Name]*entry
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the time source used for fetch timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates an empty session over b.
func NewSession(b Backend, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		backend: b,
		clock:   clockwork.NewRealClock(),
		logger:  logging.Get(logging.CategorySession),
		entries: newEntries(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func newEntries() map[Name]*entry {
	m := make(map[Name]*entry, len(AllNames))
	for _, n := range AllNames {
		m[n] = &entry{}
	}
	return m
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Epoch returns a counter that changes whenever the open character does.
// Views compare it to drop results that belong to a previous character.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Open imports the save at savePath and makes it the current character,
// replacing any previous one together with its cache.
func (s *Session) Open(ctx context.Context, savePath string) (*backend.Character, error) {
	s.mu.Lock()
	startEpoch := s.epoch
	s.mu.Unlock()

	timer := logging.StartTimer(logging.CategorySession, "open character")
	c, err := s.backend.ImportCharacter(ctx, savePath)
	timer.Stop()
	if err != nil {
		s.logger.Warn("import failed", zap.String("path", savePath), zap.Error(err))
		return nil, fmt.Errorf("open %s: %w", savePath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != startEpoch {
		return nil, ErrSessionClosed
	}
	s.resetLocked()
	if c.FilePath == "" {
		c.FilePath = savePath
	}
	s.character = c
	s.dirty = c.HasUnsavedChanges

	s.logger.Info("character opened",
		zap.Int64("character_id", c.ID),
		zap.String("name", c.Name),
		zap.Uint64("epoch", s.epoch))
	cp := *c
	return &cp, nil
}

// Close drops the current character and cancels its in-flight fetches.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.character != nil {
		s.logger.Info("character closed", zap.Int64("character_id", s.character.ID))
	}
	s.resetLocked()
}

// resetLocked starts a new epoch with an empty cache.
func (s *Session) resetLocked() {
	s.epoch++
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.character = nil
	s.dirty = false
	s.entries = newEntries()
}

// Character returns a copy of the root record, or nil if none is open.
func (s *Session) Character() *backend.Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.character == nil {
		return nil
	}
	cp := *s.character
	return &cp
}

// Dirty reports whether the character has edits that were not saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Snapshot returns the cache entry for name.
func (s *Session) Snapshot(name Name) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return Snapshot{Name: name}
	}
	return e.snapshot(name)
}

// Snapshots returns every cache entry.
func (s *Session) Snapshots() map[Name]Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Name]Snapshot, len(s.entries))
	for n, e := range s.entries {
		out[n] = e.snapshot(n)
	}
	return out
}

// ReloadCharacter refetches the root record. The subsystem cache is kept.
func (s *Session) ReloadCharacter(ctx context.Context) (*backend.Character, error) {
	s.mu.Lock()
	if s.character == nil {
		s.mu.Unlock()
		return nil, ErrNoCharacter
	}
	id, epoch, path := s.character.ID, s.epoch, s.character.FilePath
	s.mu.Unlock()

	c, err := s.backend.GetCharacter(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload character %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil, ErrSessionClosed
	}
	if c.FilePath == "" {
		c.FilePath = path
	}
	s.character = c
	s.dirty = c.HasUnsavedChanges
	cp := *c
	return &cp, nil
}

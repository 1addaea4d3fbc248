package character

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// errStale marks a fetch result that an invalidation made obsolete.
var errStale = errors.New("stale fetch")

// Load returns the subsystem data, fetching it when it is not cached or
// force is set. Concurrent loads of the same subsystem share one fetch.
//
// When the fetch fails the returned snapshot still carries any previously
// cached data along with the error. ctx only bounds the wait: the fetch
// itself belongs to the session and is cancelled by Close.
func (s *Session) Load(ctx context.Context, name Name, force bool) (Snapshot, error) {
	if !name.Valid() {
		return Snapshot{Name: name}, fmt.Errorf("unknown subsystem %q", name)
	}

	for attempt := 0; attempt < maxSupersededRetries; attempt++ {
		snap, err := s.load(ctx, name, force)
		if !errors.Is(err, errStale) {
			return snap, err
		}
		// The entry was invalidated mid-flight; the caller still wants
		// current data.
		force = false
	}
	return s.Snapshot(name), ErrSuperseded
}

func (s *Session) load(ctx context.Context, name Name, force bool) (Snapshot, error) {
	s.mu.Lock()
	if s.character == nil {
		s.mu.Unlock()
		return Snapshot{Name: name}, ErrNoCharacter
	}
	e := s.entries[name]
	if !force && e.state == StateReady {
		snap := e.snapshot(name)
		s.mu.Unlock()
		s.logger.Debug("cache hit", zap.String("subsystem", string(name)))
		return snap, nil
	}

	e.state = StateLoading
	epoch, version, id, fetchCtx := s.epoch, e.version, s.character.ID, s.ctx
	key := fmt.Sprintf("%d/%s/%d", epoch, name, version)
	s.mu.Unlock()

	ch := s.flights.DoChan(key, func() (interface{}, error) {
		return s.fetch(fetchCtx, epoch, version, id, name)
	})

	select {
	case <-ctx.Done():
		return s.Snapshot(name), ctx.Err()
	case res := <-ch:
		snap, _ := res.Val.(Snapshot)
		snap.Name = name
		return snap, res.Err
	}
}

// fetch performs one network call and stores the result if the session is
// still on the same epoch and the entry on the same version.
func (s *Session) fetch(ctx context.Context, epoch, version uint64, id int64, name Name) (Snapshot, error) {
	s.logger.Debug("fetching subsystem", zap.String("subsystem", string(name)), zap.Uint64("version", version))
	data, err := s.backend.GetSubsystem(ctx, id, name.Path())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		s.logger.Debug("discarding fetch from previous character", zap.String("subsystem", string(name)))
		return Snapshot{Name: name}, ErrSessionClosed
	}
	e := s.entries[name]
	if e.version != version {
		s.logger.Debug("discarding invalidated fetch", zap.String("subsystem", string(name)))
		return e.snapshot(name), errStale
	}

	if err != nil {
		e.err = err
		e.state = StateFailed
		s.logger.Warn("subsystem load failed", zap.String("subsystem", string(name)), zap.Error(err))
		return e.snapshot(name), fmt.Errorf("load %s: %w", name, err)
	}

	e.data = data
	e.err = nil
	e.state = StateReady
	e.fetchedAt = s.clock.Now()
	return e.snapshot(name), nil
}

// Invalidate clears the cached data of names and marks them stale. It does
// not fetch; the next Load does. Fetches already in flight for these
// subsystems will not write their results.
func (s *Session) Invalidate(names ...Name) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked(names...)
}

func (s *Session) invalidateLocked(names ...Name) {
	for _, n := range names {
		e, ok := s.entries[n]
		if !ok {
			continue
		}
		e.version++
		e.data = nil
		e.err = nil
		e.state = StateStale
	}
	if len(names) > 0 {
		s.logger.Debug("invalidated subsystems", zap.Any("subsystems", names))
	}
}

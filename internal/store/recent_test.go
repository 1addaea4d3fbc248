package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RecentStore {
	t.Helper()
	s, err := OpenRecentStore(filepath.Join(t.TempDir(), "state", "recent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func at(minute int) time.Time {
	return time.Date(2026, 4, 2, 10, minute, 0, 0, time.UTC)
}

func TestRecordAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, RecentSave{Path: "/saves/a/player.bic", CharacterName: "Aribeth", OpenedAt: at(1)}))
	require.NoError(t, s.Record(ctx, RecentSave{Path: "/saves/b/player.bic", Name: "Quick Save", OpenedAt: at(2)}))

	got, err := s.List(ctx, 10)
	require.NoError(t, err)
	want := []RecentSave{
		{Path: "/saves/b/player.bic", Name: "Quick Save", OpenedAt: at(2), OpenCount: 1},
		{Path: "/saves/a/player.bic", Name: "player.bic", CharacterName: "Aribeth", OpenedAt: at(1), OpenCount: 1},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordReopenMovesToTop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, RecentSave{Path: "/a", CharacterName: "Aribeth", OpenedAt: at(1)}))
	require.NoError(t, s.Record(ctx, RecentSave{Path: "/b", OpenedAt: at(2)}))
	require.NoError(t, s.Record(ctx, RecentSave{Path: "/a", OpenedAt: at(3)}))

	got, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/a", got[0].Path)
	assert.Equal(t, 2, got[0].OpenCount)
	assert.Equal(t, "Aribeth", got[0].CharacterName, "an empty name keeps the known one")
}

func TestListLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, RecentSave{Path: filepath.Join("/saves", string(rune('a'+i))), OpenedAt: at(i)}))
	}

	got, err := s.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "/saves/e", got[0].Path)
}

func TestRemoveAndPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Record(ctx, RecentSave{Path: filepath.Join("/saves", string(rune('a'+i))), OpenedAt: at(i)}))
	}

	require.NoError(t, s.Remove(ctx, "/saves/d"))
	require.NoError(t, s.Remove(ctx, "/saves/missing"))

	n, err := s.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.List(ctx, 0)
	require.NoError(t, err)
	paths := make([]string, len(got))
	for i, r := range got {
		paths[i] = r.Path
	}
	assert.Equal(t, []string{"/saves/c", "/saves/b"}, paths)
}

func TestRecordRequiresPath(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Record(context.Background(), RecentSave{}))
}

func TestMigratesVersionOneDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE recent_saves (path TEXT PRIMARY KEY, name TEXT NOT NULL, opened_at INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO recent_saves (path, name, opened_at) VALUES ('/old', 'old.bic', ?)`, at(0).UnixNano())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := OpenRecentStore(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(s.db))
	assert.True(t, columnExists(s.db, "recent_saves", "character_name"))

	got, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].OpenCount)
	assert.Equal(t, "", got[0].CharacterName)
}

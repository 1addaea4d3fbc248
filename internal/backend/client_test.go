package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/", WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://nope")
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/system/initialization/status/", r.URL.Path)
		writeJSON(w, 200, `{"stage":"game_data","progress":40,"message":"Parsing 2DA tables"}`)
	})

	s, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StageGameData, s.Stage)
	assert.Equal(t, 40.0, s.Progress)
	assert.False(t, s.Ready())
	assert.Equal(t, "Loading game data...", s.Stage.Message())
}

func TestStatus_SchemaViolations(t *testing.T) {
	bodies := map[string]string{
		"unknown stage":  `{"stage":"warming_up","progress":10,"message":""}`,
		"progress range": `{"stage":"ready","progress":140,"message":""}`,
		"not json":       `<html>starting</html>`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, 200, body)
			})
			_, err := c.Status(context.Background())
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "/system/initialization/status/", se.Endpoint)
		})
	}
}

func TestHTTPErrorCarriesDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"detail":"backend still starting"}`)
	})

	_, err := c.Status(context.Background())
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusServiceUnavailable, he.StatusCode)
	assert.Equal(t, "backend still starting", he.Detail)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Contains(t, err.Error(), "backend still starting")
}

func TestHTTPErrorTruncatesBodyByRune(t *testing.T) {
	body := strings.Repeat("é", 250)
	e := newHTTPError("GET", "/saves/", http.StatusBadGateway, []byte(body))

	msg := e.Error()
	assert.True(t, utf8.ValidString(msg), "error text must stay valid UTF-8")
	assert.True(t, strings.HasSuffix(msg, strings.Repeat("é", maxBodyRunes)+"..."))
	assert.NotContains(t, msg, strings.Repeat("é", maxBodyRunes+1))
}

func TestImportCharacter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/characters/import/", r.URL.Path)
		var req ImportRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/saves/000001 - Quick/resgff.zip", req.FilePath)
		writeJSON(w, 200, `{"id":7,"name":"Khelgar","gold":1200,"has_unsaved_changes":false}`)
	})

	ch, err := c.ImportCharacter(context.Background(), "/saves/000001 - Quick/resgff.zip")
	require.NoError(t, err)
	want := &Character{ID: 7, Name: "Khelgar", Gold: 1200}
	if diff := cmp.Diff(want, ch); diff != "" {
		t.Errorf("character mismatch (-want +got):\n%s", diff)
	}
}

func TestImportCharacter_InvalidID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"id":0,"name":"Nobody"}`)
	})
	_, err := c.ImportCharacter(context.Background(), "x.sav")
	var se *SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestGetSubsystem(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/characters/7/feats/":
			writeJSON(w, 200, `{"feats":[{"id":1,"name":"Power Attack"}]}`)
		case "/api/characters/7/spells/":
			writeJSON(w, 200, `"just a string"`)
		default:
			http.NotFound(w, r)
		}
	})

	data, err := c.GetSubsystem(context.Background(), 7, "feats")
	require.NoError(t, err)
	assert.JSONEq(t, `{"feats":[{"id":1,"name":"Power Attack"}]}`, string(data))

	_, err = c.GetSubsystem(context.Background(), 7, "spells")
	var se *SchemaError
	assert.ErrorAs(t, err, &se)

	_, err = c.GetSubsystem(context.Background(), 7, "combat")
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestMutations(t *testing.T) {
	type call struct {
		path string
		body map[string]any
	}
	var calls []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		calls = append(calls, call{path: r.URL.Path, body: body})
		writeJSON(w, 200, `{"success":true,"message":"ok","warnings":["prerequisite missing"]}`)
	})
	ctx := context.Background()

	res, err := c.AddFeat(ctx, 3, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"prerequisite missing"}, res.Warnings)

	_, err = c.RemoveFeat(ctx, 3, 42)
	require.NoError(t, err)
	_, err = c.AddSpell(ctx, 3, SpellRequest{SpellID: 9, ClassIndex: 1, SpellLevel: 2})
	require.NoError(t, err)
	_, err = c.EquipItem(ctx, 3, EquipRequest{InventoryIndex: 4, Slot: "right_hand"})
	require.NoError(t, err)
	_, err = c.UnequipItem(ctx, 3, "head")
	require.NoError(t, err)
	_, err = c.DeleteItem(ctx, 3, 5)
	require.NoError(t, err)
	_, err = c.UpdateGold(ctx, 3, 999)
	require.NoError(t, err)
	_, err = c.SaveCharacter(ctx, 3, true)
	require.NoError(t, err)

	want := []call{
		{"/api/characters/3/feats/add/", map[string]any{"feat_id": 42.0}},
		{"/api/characters/3/feats/remove/", map[string]any{"feat_id": 42.0}},
		{"/api/characters/3/spells/add/", map[string]any{"spell_id": 9.0, "class_index": 1.0, "spell_level": 2.0}},
		{"/api/characters/3/inventory/equip/", map[string]any{"inventory_index": 4.0, "slot": "right_hand"}},
		{"/api/characters/3/inventory/unequip/", map[string]any{"slot": "head"}},
		{"/api/characters/3/inventory/delete/", map[string]any{"inventory_index": 5.0}},
		{"/api/characters/3/gold/", map[string]any{"gold": 999.0}},
		{"/api/characters/3/save/", map[string]any{"create_backup": true}},
	}
	if diff := cmp.Diff(want, calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestMutationRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":false,"message":"feat already known"}`)
	})

	res, err := c.AddFeat(context.Background(), 1, 2)
	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "add feat", me.Action)
	assert.Equal(t, "feat already known", me.Message)
	require.NotNil(t, res)
	assert.False(t, res.Success)
}

func TestMutationMissingSuccessField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"message":"?"}`)
	})
	_, err := c.DeleteItem(context.Background(), 1, 0)
	var se *SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestUpdateGoldRejectsNegative(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.UpdateGold(context.Background(), 1, -5)
	assert.Error(t, err)
}

func TestListSaves(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/saves/", r.URL.Path)
		assert.Equal(t, "campaign", r.URL.Query().Get("path"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "4", r.URL.Query().Get("offset"))
		writeJSON(w, 200, `{"files":[
			{"name":"000005 - Auto","path":"campaign/000005 - Auto","size":1024,"modified":"2026-03-01T10:00:00Z","is_directory":true},
			{"name":"000006 - Quick","path":"campaign/000006 - Quick","size":2048,"modified":"2026-03-02T10:00:00Z","is_directory":true}
		],"total_count":9,"current_path":"campaign"}`)
	})

	l, err := c.ListSaves(context.Background(), ListQuery{Path: "campaign", Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 9, l.TotalCount)
	require.Len(t, l.Files, 2)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), l.Files[1].Modified)
}

func TestListBackups_Validates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/saves/backups/", r.URL.Path)
		writeJSON(w, 200, `{"files":[{"name":"a","path":"a"},{"name":"b","path":"b"}],"total_count":1,"current_path":""}`)
	})
	_, err := c.ListBackups(context.Background(), ListQuery{})
	var se *SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Status(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

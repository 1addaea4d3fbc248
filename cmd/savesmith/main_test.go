package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"savesmith/internal/character"
	"savesmith/internal/config"
	"savesmith/internal/editor"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testBackend is a minimal editor backend for one character.
type testBackend struct {
	mu    sync.Mutex
	ready bool
	posts []string
}

func (b *testBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/api")
	if r.Method == http.MethodPost {
		b.posts = append(b.posts, path)
	}

	switch path {
	case "/system/initialization/status/":
		if b.ready {
			fmt.Fprint(w, `{"stage":"ready","progress":100}`)
			return
		}
		fmt.Fprint(w, `{"stage":"game_data","progress":55,"message":"Loading 2da tables"}`)
	case "/characters/import/":
		fmt.Fprint(w, `{"id":3,"name":"Casavir","gold":640,"has_unsaved_changes":false}`)
	case "/characters/3/feats/":
		fmt.Fprint(w, `{"feats":[{"id":1,"name":"Power Attack"},{"id":2,"name":"Cleave"}]}`)
	case "/characters/3/spells/":
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"detail":"spell tables missing"}`)
	case "/characters/3/feats/add/":
		fmt.Fprint(w, `{"success":true,"message":"Feat added","warnings":["prerequisites not met"]}`)
	case "/characters/3/save/":
		fmt.Fprint(w, `{"success":true,"message":"Character saved"}`)
	case "/saves/":
		fmt.Fprint(w, `{"files":[{"name":"000001 - Quick","path":"/saves/000001 - Quick","is_directory":true}],"total_count":3,"current_path":"/saves"}`)
	default:
		if strings.HasPrefix(path, "/characters/3/") {
			fmt.Fprint(w, `{}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"not found"}`)
	}
}

func (b *testBackend) postedPaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.posts...)
}

// useBackend points the global configuration at a test backend.
func useBackend(t *testing.T, b *testBackend) {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	cfg = config.DefaultConfig()
	cfg.StateDir = t.TempDir()
	cfg.Backend.BaseURL = srv.URL + "/api"
	cfg.Readiness.InitialInterval = "5ms"
	cfg.Readiness.MaxInterval = "10ms"
	cfg.Readiness.MaxWait = "100ms"
	logger = zap.NewNop()
	timeout = 10 * time.Second

	t.Cleanup(func() {
		showQuery = ""
		noSave = false
		createBackup = true
		listBackups = false
		listLimit = 0
		listOffset = 0
	})
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

func TestResolveSubsystems(t *testing.T) {
	names, err := resolveSubsystems(nil)
	require.NoError(t, err)
	assert.Equal(t, editor.TabOverview.Subsystems(), names)

	names, err = resolveSubsystems([]string{"combat", "feats", "saves", "abilities"})
	require.NoError(t, err)
	assert.Equal(t, []character.Name{character.Combat, character.Feats, character.Saves, character.AbilityScores}, names)

	_, err = resolveSubsystems([]string{"quests"})
	assert.ErrorIs(t, err, editor.ErrUnknownTab)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[..........]", progressBar(0, 10))
	assert.Equal(t, "[#####.....]", progressBar(50, 10))
	assert.Equal(t, "[##########]", progressBar(140, 10))
	assert.Equal(t, "[..........]", progressBar(-3, 10))
}

func TestSaveDisplayName(t *testing.T) {
	assert.Equal(t, "000002 - Keep", saveDisplayName("/saves/000002 - Keep/resgff.zip"))
	assert.Equal(t, "player.bic", saveDisplayName("player.bic"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"gold": 5}))
	assert.JSONEq(t, `{"gold":5}`, buf.String())
	assert.NotContains(t, buf.String(), "\x1b[", "no color when not writing to a terminal")
}

func TestRunStatus(t *testing.T) {
	useBackend(t, &testBackend{})
	cmd, out := testCommand()

	require.NoError(t, runStatus(cmd, nil))
	assert.Contains(t, out.String(), "Stage:    game_data")
	assert.Contains(t, out.String(), "55%")
	assert.Contains(t, out.String(), "Loading 2da tables")
}

func TestRunWait(t *testing.T) {
	b := &testBackend{ready: true}
	useBackend(t, b)
	cmd, out := testCommand()

	require.NoError(t, runWait(cmd, nil))
	assert.Contains(t, out.String(), "Backend ready.")
}

func TestRunWait_Timeout(t *testing.T) {
	useBackend(t, &testBackend{})
	cmd, out := testCommand()

	err := runWait(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is the backend running")
	assert.Contains(t, out.String(), "Loading game data...")
}

func TestRunShow(t *testing.T) {
	useBackend(t, &testBackend{ready: true})
	cmd, out := testCommand()

	require.NoError(t, runShow(cmd, []string{"/saves/000002 - Keep/resgff.zip", "feats"}))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.JSONEq(t, `{"feats":[{"id":1,"name":"Power Attack"},{"id":2,"name":"Cleave"}]}`, string(doc["feats"]))
	assert.Contains(t, string(doc["character"]), "Casavir")

	// The open is remembered.
	recentCmd, recentOut := testCommand()
	require.NoError(t, runRecent(recentCmd, nil))
	assert.Contains(t, recentOut.String(), "000002 - Keep")
	assert.Contains(t, recentOut.String(), "Casavir")
}

func TestRunShow_Query(t *testing.T) {
	useBackend(t, &testBackend{ready: true})
	showQuery = "feats.#.name"
	cmd, out := testCommand()

	require.NoError(t, runShow(cmd, []string{"save.zip", "feats", "combat"}))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.JSONEq(t, `["Power Attack","Cleave"]`, string(doc["feats"]))
	assert.Equal(t, "null", string(doc["combat"]))
}

func TestRunShow_PartialFailure(t *testing.T) {
	useBackend(t, &testBackend{ready: true})
	cmd, out := testCommand()

	err := runShow(cmd, []string{"save.zip", "feats", "spells"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spells")
	assert.Contains(t, out.String(), "Power Attack", "loaded subsystems are still printed")
}

func TestFeatAddSaves(t *testing.T) {
	b := &testBackend{ready: true}
	useBackend(t, b)
	cmd, out := testCommand()

	require.NoError(t, featAddCmd.RunE(cmd, []string{"save.zip", "42"}))
	assert.Equal(t, []string{"/characters/import/", "/characters/3/feats/add/", "/characters/3/save/"}, b.postedPaths())
	assert.Contains(t, out.String(), "Feat added")
	assert.Contains(t, out.String(), "warning: prerequisites not met")
	assert.Contains(t, out.String(), "Character saved")
}

func TestFeatAddNoSave(t *testing.T) {
	b := &testBackend{ready: true}
	useBackend(t, b)
	noSave = true
	cmd, out := testCommand()

	require.NoError(t, featAddCmd.RunE(cmd, []string{"save.zip", "42"}))
	assert.Equal(t, []string{"/characters/import/", "/characters/3/feats/add/"}, b.postedPaths())
	assert.Contains(t, out.String(), "Not saved")
}

func TestFeatAddRejectsBadID(t *testing.T) {
	useBackend(t, &testBackend{ready: true})
	cmd, _ := testCommand()
	err := featAddCmd.RunE(cmd, []string{"save.zip", "forty-two"})
	assert.ErrorContains(t, err, `invalid feat-id "forty-two"`)
}

func TestEditRejectsNegativeArgs(t *testing.T) {
	b := &testBackend{ready: true}
	useBackend(t, b)
	cmd, _ := testCommand()

	err := featAddCmd.RunE(cmd, []string{"save.zip", "-3"})
	assert.ErrorContains(t, err, `invalid feat-id "-3": must be a non-negative integer`)

	_, err = parseIntArg("inventory-index", "-1")
	assert.ErrorContains(t, err, `invalid inventory-index "-1"`)

	n, err := parseIntArg("inventory-index", "0")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Empty(t, b.postedPaths(), "nothing reaches the backend")
}

func TestRunSaves(t *testing.T) {
	useBackend(t, &testBackend{ready: true})
	listLimit = 1
	cmd, out := testCommand()

	require.NoError(t, runSaves(cmd, nil))
	assert.Contains(t, out.String(), "000001 - Quick/")
	assert.Contains(t, out.String(), "Page 1 of 3")
	assert.Contains(t, out.String(), "savesmith saves --offset 1")
}

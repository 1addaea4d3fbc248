package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"savesmith/internal/backend"
	"savesmith/internal/character"
	"savesmith/internal/editor"
	"savesmith/internal/readiness"
	"savesmith/internal/saves"
	"savesmith/internal/store"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// fakeEditorBackend serves the editor API for one character.
type fakeEditorBackend struct {
	mu       sync.Mutex
	stage    backend.Stage
	docs     map[string]string
	failing  map[string]bool
	requests []string
	gold     int64
}

func newFakeEditorBackend() *fakeEditorBackend {
	return &fakeEditorBackend{
		stage: backend.StageReady,
		gold:  100,
		docs: map[string]string{
			"abilities": `{"strength":16,"dexterity":12,"constitution":14}`,
			"combat":    `{"armor_class":18,"base_attack_bonus":6}`,
			"skills":    `{"skills":[{"name":"Diplomacy","rank":4}]}`,
			"feats":     `{"feats":[{"id":1,"name":"Power Attack"},{"id":2,"name":"Cleave"}]}`,
			"saves":     `{"fortitude":7,"reflex":3,"will":4}`,
			"classes":   `{"classes":[{"name":"Fighter","level":6}]}`,
			"spells":    `{"known":[]}`,
			"inventory": `{"items":[{"name":"Longsword","slot":"right_hand"}]}`,
		},
		failing: map[string]bool{},
	}
}

func (f *fakeEditorBackend) setStage(s backend.Stage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stage = s
}

func (f *fakeEditorBackend) fail(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[path] = true
}

func (f *fakeEditorBackend) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

func (f *fakeEditorBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := strings.TrimPrefix(r.URL.Path, "/api")
	f.requests = append(f.requests, r.Method+" "+path)

	reply := func(status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}

	switch {
	case path == "/system/initialization/status/":
		progress := 40
		if f.stage == backend.StageReady {
			progress = 100
		}
		reply(200, fmt.Sprintf(`{"stage":%q,"progress":%d}`, f.stage, progress))
	case path == "/saves/":
		reply(200, `{"files":[
			{"name":"000001 - Quick","path":"/saves/000001 - Quick","is_directory":true},
			{"name":"resgff.zip","path":"/saves/000002 - Keep/resgff.zip","size":2048,"character_name":"Aribeth"}
		],"total_count":2,"current_path":"/saves"}`)
	case path == "/saves/backups/":
		reply(200, `{"files":[{"name":"backup-1.zip","path":"/backups/backup-1.zip","size":100}],"total_count":1,"current_path":"/backups"}`)
	case path == "/characters/import/":
		var req backend.ImportRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		reply(200, fmt.Sprintf(`{"id":7,"name":"Aribeth","gold":%d,"file_path":%q,"has_unsaved_changes":false}`, f.gold, req.FilePath))
	case path == "/characters/7/feats/add/":
		f.docs["feats"] = `{"feats":[{"id":1,"name":"Power Attack"},{"id":2,"name":"Cleave"},{"id":42,"name":"Great Cleave"}]}`
		reply(200, `{"success":true,"message":"Feat added"}`)
	case path == "/characters/7/feats/remove/":
		reply(200, `{"success":false,"message":"Feat is a prerequisite"}`)
	case path == "/characters/7/save/":
		reply(200, `{"success":true,"message":"Saved"}`)
	case strings.HasPrefix(path, "/characters/7/"):
		name := strings.Trim(strings.TrimPrefix(path, "/characters/7/"), "/")
		if f.failing[name] {
			reply(500, `{"detail":"subsystem exploded"}`)
			return
		}
		doc, ok := f.docs[name]
		if !ok {
			reply(404, `{"detail":"not found"}`)
			return
		}
		reply(200, doc)
	default:
		reply(404, `{"detail":"not found"}`)
	}
}

// harness drives a Model without a terminal. Commands run synchronously;
// one that does not finish quickly (a timer on the fake clock, a cursor
// blink) is parked until release.
type harness struct {
	t       *testing.T
	m       Model
	clk     *clockwork.FakeClock
	fake    *fakeEditorBackend
	session *character.Session
	pending []chan tea.Msg
}

func newHarness(t *testing.T, fake *fakeEditorBackend, policy readiness.Policy, opts ...func(*Deps)) *harness {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := backend.New(srv.URL + "/api")
	require.NoError(t, err)

	recent, err := store.OpenRecentStore(filepath.Join(t.TempDir(), "recent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { recent.Close() })

	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	session := character.NewSession(client)
	t.Cleanup(session.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	deps := Deps{
		Session:     session,
		Router:      editor.NewRouter(session),
		Browser:     saves.NewBrowser(client, 20),
		Poller:      readiness.NewPoller(client, readiness.WithPolicy(policy)),
		Recent:      recent,
		BaseURL:     srv.URL + "/api",
		RecentLimit: 5,
		Styles:      NewStyles(LightTheme()),
		Editor: EditorOptions{
			Clock:          clk,
			FilterDebounce: 150 * time.Millisecond,
			ToastDuration:  4 * time.Second,
			CreateBackup:   true,
		},
	}

	for _, opt := range opts {
		opt(&deps)
	}

	h := &harness{t: t, clk: clk, fake: fake, session: session}
	h.m = NewModel(ctx, deps)
	t.Cleanup(h.m.splash.Stop)
	h.send(tea.WindowSizeMsg{Width: 140, Height: 48})
	h.exec(h.m.Init())
	return h
}

func readyPolicy() readiness.Policy {
	return readiness.Policy{
		InitialInterval: 5 * time.Millisecond,
		Multiplier:      1.5,
		MaxInterval:     20 * time.Millisecond,
		MaxWait:         5 * time.Second,
	}
}

func (h *harness) send(msg tea.Msg) {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	h.exec(cmd)
}

func (h *harness) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		h.handle(msg)
	case <-time.After(300 * time.Millisecond):
		h.pending = append(h.pending, ch)
	}
}

func (h *harness) handle(msg tea.Msg) {
	switch msg := msg.(type) {
	case nil:
	case tea.BatchMsg:
		for _, cmd := range msg {
			h.exec(cmd)
		}
	case spinner.TickMsg:
		// Feeding ticks back would schedule the next frame forever.
	default:
		h.send(msg)
	}
}

// release fires every fake timer and delivers the parked results.
func (h *harness) release() {
	for i := 0; i < 10 && len(h.pending) > 0; i++ {
		h.clk.Advance(time.Hour)
		parked := h.pending
		h.pending = nil
		for _, ch := range parked {
			select {
			case msg := <-ch:
				h.handle(msg)
			case <-time.After(3 * time.Second):
				h.t.Fatal("parked command did not finish")
			}
		}
	}
}

func (h *harness) key(s string) {
	switch s {
	case "enter":
		h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		h.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "down":
		h.send(tea.KeyMsg{Type: tea.KeyDown})
	case "backspace":
		h.send(tea.KeyMsg{Type: tea.KeyBackspace})
	default:
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	}
}

// openKeep selects the second browser row and opens it.
func (h *harness) openKeep() {
	h.t.Helper()
	require.Equal(h.t, screenBrowser, h.m.screen)
	h.key("down")
	h.key("enter")
	require.Equal(h.t, screenEditor, h.m.screen, "browser error: %v", h.m.browser.err)
}

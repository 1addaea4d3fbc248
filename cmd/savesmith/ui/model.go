package ui

import (
	"context"
	"fmt"
	"strings"

	"savesmith/internal/character"
	"savesmith/internal/editor"
	"savesmith/internal/readiness"
	"savesmith/internal/saves"
	"savesmith/internal/store"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type screen int

const (
	screenSplash screen = iota
	screenBrowser
	screenEditor
)

// Deps are the services the interactive editor runs on.
type Deps struct {
	Session *character.Session
	Router  *editor.Router
	Browser *saves.Browser
	Poller  *readiness.Poller
	// Recent and Watcher are optional.
	Recent  *store.RecentStore
	Watcher *saves.Watcher

	BaseURL     string
	RecentLimit int
	// OpenPath, when set, is opened as soon as the backend is ready.
	OpenPath string

	Styles Styles
	Editor EditorOptions
	Logger *zap.Logger
}

// Model is the root bubbletea model.
type Model struct {
	ctx    context.Context
	deps   Deps
	styles Styles
	logger *zap.Logger

	screen  screen
	splash  SplashModel
	browser BrowserModel
	editor  EditorModel
	initCmd tea.Cmd

	opening string
	width   int
	height  int
	err     error
}

// NewModel builds the root model and starts readiness polling under ctx.
func NewModel(ctx context.Context, deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Editor.Logger == nil {
		deps.Editor.Logger = deps.Logger
	}

	m := Model{
		ctx:     ctx,
		deps:    deps,
		styles:  deps.Styles,
		logger:  deps.Logger,
		splash:  NewSplashModel(deps.Poller, deps.BaseURL, deps.Styles),
		browser: NewBrowserModel(ctx, deps.Browser, deps.Recent, deps.RecentLimit, deps.Styles),
		editor:  NewEditorModel(ctx, deps.Session, deps.Router, deps.Editor, deps.Styles),
	}
	m.initCmd = tea.Batch(m.splash.Start(ctx), m.watchCmd())
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.initCmd
}

// Err returns the error the program ended with, if any.
func (m Model) Err() error { return m.err }

func (m Model) watchCmd() tea.Cmd {
	w := m.deps.Watcher
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-w.Events()
		if !ok {
			return nil
		}
		return savesChangedMsg{event: ev}
	}
}

func (m Model) openCmd(path string) tea.Cmd {
	ctx, session, recent, limit, logger := m.ctx, m.deps.Session, m.deps.Recent, m.deps.RecentLimit, m.logger
	return func() tea.Msg {
		c, err := session.Open(ctx, path)
		if err != nil {
			return characterOpenedMsg{path: path, err: err}
		}
		epoch := session.Epoch()
		if recent != nil {
			entry := store.RecentSave{Path: path, Name: displayName(path), CharacterName: c.Name}
			if err := recent.Record(ctx, entry); err != nil {
				logger.Warn("failed to record recent save", zap.Error(err))
			} else if limit > 0 {
				if _, err := recent.Prune(ctx, limit); err != nil {
					logger.Warn("failed to prune recent saves", zap.Error(err))
				}
			}
		}
		return characterOpenedMsg{path: path, character: c, epoch: epoch}
	}
}

// quit stops background work and ends the program.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.splash.Stop()
	m.editor.debouncer.Cancel()
	if m.screen == screenSplash && m.splash.Fatal() != nil {
		m.err = m.splash.Fatal()
	}
	return m, tea.Quit
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.splash.SetSize(msg.Width, msg.Height)
		m.browser.SetSize(msg.Width, msg.Height)
		m.editor.SetSize(msg.Width, msg.Height)
		return m, nil

	case readinessMsg, spinner.TickMsg:
		m.splash, cmd = m.splash.Update(msg)
		return m, cmd

	case readinessDoneMsg:
		m.splash, cmd = m.splash.Update(msg)
		if !m.splash.Ready() {
			return m, cmd
		}
		m.screen = screenBrowser
		cmds := []tea.Cmd{cmd, m.browser.Init()}
		if m.deps.OpenPath != "" {
			m.opening = m.deps.OpenPath
			cmds = append(cmds, m.openCmd(m.deps.OpenPath))
		}
		return m, tea.Batch(cmds...)

	case pageLoadedMsg, recentLoadedMsg:
		m.browser, cmd = m.browser.Update(msg)
		return m, cmd

	case savesChangedMsg:
		m.logger.Debug("saves changed on disk", zap.Strings("paths", msg.event.Paths))
		m.browser, cmd = m.browser.Update(msg)
		return m, tea.Batch(cmd, m.watchCmd())

	case openRequestMsg:
		if m.opening != "" {
			return m, nil
		}
		m.opening = msg.path
		return m, m.openCmd(msg.path)

	case characterOpenedMsg:
		m.opening = ""
		if msg.err != nil {
			m.browser.err = fmt.Errorf("open %s: %w", displayName(msg.path), msg.err)
			return m, nil
		}
		if msg.epoch != m.deps.Session.Epoch() {
			return m, nil
		}
		m.screen = screenEditor
		cmd = m.editor.Start(msg.epoch)
		return m, tea.Batch(cmd, m.browser.recentsCmd())

	case closeCharacterMsg:
		m.deps.Session.Close()
		m.screen = screenBrowser
		return m, m.browser.Reload()

	case tabLoadedMsg, mutationDoneMsg, toastExpiredMsg, DebouncedMsg:
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.screen == screenEditor {
			m.editor, cmd = m.editor.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	capturing := m.screen == screenEditor && m.editor.Capturing()
	if msg.String() == "q" && !capturing {
		return m.quit()
	}

	var cmd tea.Cmd
	switch m.screen {
	case screenSplash:
		if msg.String() == "r" && m.splash.Fatal() != nil {
			return m, m.splash.Start(m.ctx)
		}
	case screenBrowser:
		if m.opening != "" {
			return m, nil
		}
		m.browser, cmd = m.browser.Update(msg)
	case screenEditor:
		m.editor, cmd = m.editor.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var body, help string
	switch m.screen {
	case screenSplash:
		return m.splash.View()
	case screenBrowser:
		body = m.browser.View()
		help = m.browser.Help()
		if m.opening != "" {
			body += "\n" + m.styles.Info.Render("Opening "+displayName(m.opening)+"…")
		}
	case screenEditor:
		body = m.editor.View()
		help = m.editor.Help()
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Content.Render(body))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Footer.Render(help))
	return sb.String()
}

// Run starts the interactive editor and blocks until it exits. It returns
// the readiness failure when the user quits from the failure banner.
func Run(ctx context.Context, deps Deps) error {
	m := NewModel(ctx, deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	final, err := p.Run()
	m.splash.Stop()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.Err()
	}
	return nil
}

// displayName names a save by its folder; save files in one folder share
// a base name.
func displayName(path string) string {
	path = strings.TrimRight(strings.ReplaceAll(path, "\\", "/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) >= 2 && parts[len(parts)-2] != "" {
		return parts[len(parts)-2]
	}
	return parts[len(parts)-1]
}

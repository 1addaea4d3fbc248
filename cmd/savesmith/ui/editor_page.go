package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"savesmith/internal/backend"
	"savesmith/internal/character"
	"savesmith/internal/editor"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type editorMode int

const (
	modeNormal editorMode = iota
	modeFilter
	modeCommand
)

type toastKind int

const (
	toastSuccess toastKind = iota
	toastWarning
	toastError
)

type toast struct {
	id   int
	text string
	kind toastKind
}

// EditorOptions tunes the editor page.
type EditorOptions struct {
	Clock          clockwork.Clock
	FilterDebounce time.Duration
	ToastDuration  time.Duration
	CreateBackup   bool
	Logger         *zap.Logger
}

// EditorModel shows the open character through the tab router.
type EditorModel struct {
	ctx     context.Context
	session *character.Session
	router  *editor.Router
	opts    EditorOptions
	styles  Styles
	logger  *zap.Logger

	viewport  viewport.Model
	input     textinput.Model
	mode      editorMode
	filter    string
	debouncer *Debouncer

	renderer      *glamour.TermRenderer
	rendererWidth int
	cache         *RenderCache

	epoch   uint64
	tab     editor.Tab
	seq     uint64
	loading bool
	tabErrs map[editor.Tab]error

	toast        *toast
	toastSeq     int
	busy         bool
	confirmClose bool

	width  int
	height int
}

// NewEditorModel creates the editor page.
func NewEditorModel(ctx context.Context, session *character.Session, router *editor.Router, opts EditorOptions, styles Styles) EditorModel {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = 4 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.CharLimit = 120
	ti.PromptStyle = styles.Prompt

	return EditorModel{
		ctx:       ctx,
		session:   session,
		router:    router,
		opts:      opts,
		styles:    styles,
		logger:    opts.Logger,
		viewport:  viewport.New(80, 20),
		input:     ti,
		debouncer: NewDebouncer("filter", opts.FilterDebounce, opts.Clock),
		cache:     NewRenderCache(64),
		tab:       editor.TabOverview,
		tabErrs:   make(map[editor.Tab]error),
	}
}

// SetSize updates the viewport and re-renders.
func (m *EditorModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	layout := NewLayoutConfig(w, h)
	m.viewport.Width = layout.ContentWidth()
	m.resizeViewport()
	m.refreshContent()
}

func (m *EditorModel) resizeViewport() {
	h := NewLayoutConfig(m.width, m.height).EditorBodyHeight()
	if m.tabErrs[m.tab] != nil {
		h -= ErrorBoxHeight + 1
	}
	m.viewport.Height = max(h, 1)
}

// Start resets the page for the character opened under epoch and loads the
// overview.
func (m *EditorModel) Start(epoch uint64) tea.Cmd {
	m.epoch = epoch
	m.filter = ""
	m.mode = modeNormal
	m.input.Blur()
	m.input.SetValue("")
	m.debouncer.Cancel()
	m.tabErrs = make(map[editor.Tab]error)
	m.toast = nil
	m.busy = false
	m.confirmClose = false
	m.cache.Clear()
	return m.selectTab(editor.TabOverview)
}

// Tab returns the tab on screen.
func (m EditorModel) Tab() editor.Tab { return m.tab }

// Filter returns the applied filter.
func (m EditorModel) Filter() string { return m.filter }

// Capturing reports whether keystrokes go to the filter or command input.
func (m EditorModel) Capturing() bool { return m.mode != modeNormal }

func (m *EditorModel) selectTab(t editor.Tab) tea.Cmd {
	seq, err := m.router.Activate(t)
	if err != nil {
		return m.showToast(err.Error(), toastError)
	}
	m.tab = t
	m.seq = seq
	m.loading = true
	m.viewport.GotoTop()
	m.resizeViewport()
	m.refreshContent()
	return m.loadTabCmd(t, seq)
}

func (m EditorModel) loadTabCmd(t editor.Tab, seq uint64) tea.Cmd {
	ctx, router, epoch := m.ctx, m.router, m.epoch
	return func() tea.Msg {
		return tabLoadedMsg{epoch: epoch, sel: router.LoadTab(ctx, t, seq)}
	}
}

func (m EditorModel) refreshCmd() tea.Cmd {
	ctx, router, epoch := m.ctx, m.router, m.epoch
	return func() tea.Msg {
		return tabLoadedMsg{epoch: epoch, sel: router.Refresh(ctx)}
	}
}

func (m *EditorModel) showToast(text string, kind toastKind) tea.Cmd {
	m.toastSeq++
	id := m.toastSeq
	m.toast = &toast{id: id, text: text, kind: kind}
	expired := m.opts.Clock.After(m.opts.ToastDuration)
	return func() tea.Msg {
		<-expired
		return toastExpiredMsg{id: id}
	}
}

func (m *EditorModel) runEdit(cmd editCommand) tea.Cmd {
	if m.busy {
		return m.showToast("Another edit is still running.", toastWarning)
	}
	m.busy = true
	ctx, session, epoch := m.ctx, m.session, m.epoch
	return func() tea.Msg {
		res, err := cmd.run(ctx, session)
		return mutationDoneMsg{epoch: epoch, action: cmd.action, summary: cmd.summary, result: res, err: err}
	}
}

// Update handles messages.
func (m EditorModel) Update(msg tea.Msg) (EditorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tabLoadedMsg:
		if msg.epoch != m.epoch || msg.epoch != m.session.Epoch() || !m.router.IsCurrent(msg.sel.Seq) {
			m.logger.Debug("dropping stale tab result",
				zap.String("tab", string(msg.sel.Tab)),
				zap.Uint64("seq", msg.sel.Seq))
			return m, nil
		}
		m.loading = false
		if err := msg.sel.Err(); err != nil {
			m.tabErrs[msg.sel.Tab] = err
		} else {
			delete(m.tabErrs, msg.sel.Tab)
		}
		m.resizeViewport()
		m.refreshContent()
		return m, nil

	case mutationDoneMsg:
		if msg.epoch != m.epoch || msg.epoch != m.session.Epoch() {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			var rejected *backend.MutationError
			text := fmt.Sprintf("%s failed: %v", msg.summary, msg.err)
			if errors.As(msg.err, &rejected) {
				text = fmt.Sprintf("%s rejected: %s", msg.summary, rejected.Message)
			}
			return m, m.showToast(text, toastError)
		}

		text, kind := capitalize(msg.summary), toastSuccess
		if msg.result != nil && msg.result.Message != "" {
			text += ": " + msg.result.Message
		}
		if msg.result != nil && len(msg.result.Warnings) > 0 {
			text += " (" + strings.Join(msg.result.Warnings, "; ") + ")"
			kind = toastWarning
		}
		toastCmd := m.showToast(text, kind)

		if len(character.Affected(msg.action)) == 0 {
			m.refreshContent()
			return m, toastCmd
		}
		tab, seq := m.router.Current()
		m.loading = true
		m.refreshContent()
		return m, tea.Batch(toastCmd, m.loadTabCmd(tab, seq))

	case toastExpiredMsg:
		if m.toast != nil && m.toast.id == msg.id {
			m.toast = nil
		}
		return m, nil

	case DebouncedMsg:
		if !m.debouncer.Current(msg) {
			return m, nil
		}
		m.filter = msg.Value
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeFilter:
			return m.updateFilter(msg)
		case modeCommand:
			return m.updateCommand(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m EditorModel) updateFilter(msg tea.KeyMsg) (EditorModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.debouncer.Cancel()
		m.filter = ""
		m.input.SetValue("")
		m.leaveInput()
		m.refreshContent()
		return m, nil
	case tea.KeyEnter:
		m.debouncer.Cancel()
		m.filter = strings.TrimSpace(m.input.Value())
		m.leaveInput()
		m.refreshContent()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before {
		return m, tea.Batch(cmd, m.debouncer.Trigger(strings.TrimSpace(value)))
	}
	return m, cmd
}

func (m EditorModel) updateCommand(msg tea.KeyMsg) (EditorModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.SetValue("")
		m.leaveInput()
		return m, nil
	case tea.KeyEnter:
		line := m.input.Value()
		m.input.SetValue("")
		m.leaveInput()
		cmd, err := parseCommand(line, m.opts.CreateBackup)
		if errors.Is(err, errEmptyCommand) {
			return m, nil
		}
		if err != nil {
			return m, m.showToast(err.Error(), toastError)
		}
		return m, m.runEdit(cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *EditorModel) enterInput(mode editorMode, prompt, value string) tea.Cmd {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *EditorModel) leaveInput() {
	m.mode = modeNormal
	m.input.Blur()
}

func (m EditorModel) handleKey(msg tea.KeyMsg) (EditorModel, tea.Cmd) {
	key := msg.String()
	if key != "o" {
		m.confirmClose = false
	}

	switch key {
	case "right", "l", "tab":
		return m, m.selectTab(m.neighbour(1))
	case "left", "h", "shift+tab":
		return m, m.selectTab(m.neighbour(-1))
	case "1", "2", "3", "4", "5", "6", "7", "8":
		i, _ := strconv.Atoi(key)
		if i <= len(editor.Tabs) {
			return m, m.selectTab(editor.Tabs[i-1])
		}
		return m, nil
	case "r":
		m.loading = true
		return m, m.refreshCmd()
	case "s":
		return m, m.runEdit(saveCommand(m.opts.CreateBackup))
	case "/":
		return m, m.enterInput(modeFilter, "/", m.filter)
	case ":":
		return m, m.enterInput(modeCommand, ":", "")
	case "esc":
		if m.tabErrs[m.tab] != nil {
			delete(m.tabErrs, m.tab)
			m.resizeViewport()
			m.refreshContent()
			return m, nil
		}
		if m.filter != "" {
			m.filter = ""
			m.refreshContent()
		}
		return m, nil
	case "o":
		if m.session.Dirty() && !m.confirmClose {
			m.confirmClose = true
			return m, m.showToast("Unsaved changes. Press o again to close without saving, or s to save.", toastWarning)
		}
		return m, func() tea.Msg { return closeCharacterMsg{} }
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m EditorModel) neighbour(step int) editor.Tab {
	for i, t := range editor.Tabs {
		if t == m.tab {
			n := len(editor.Tabs)
			return editor.Tabs[((i+step)%n+n)%n]
		}
	}
	return editor.TabOverview
}

// refreshContent renders the active tab from the session cache.
func (m *EditorModel) refreshContent() {
	if m.session.Character() == nil {
		m.viewport.SetContent(m.styles.Muted.Render("No character open."))
		return
	}
	names := m.tab.Subsystems()
	snaps := m.session.Snapshots()

	if m.tab == editor.TabOverview {
		m.viewport.SetContent(m.renderOverview(snaps, names))
		return
	}

	keyParts := []interface{}{m.epoch, string(m.tab), m.filter, m.viewport.Width, m.styles.Theme.IsDark}
	for _, n := range names {
		s := snaps[n]
		keyParts = append(keyParts, string(n), int(s.State), []byte(s.Data))
	}
	content := m.cache.GetOrCompute(ComputeKey(keyParts...), func() string {
		var sb strings.Builder
		for i, n := range names {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(m.renderSubsystem(n, snaps[n], len(names) > 1))
		}
		return sb.String()
	})
	m.viewport.SetContent(content)
}

func (m *EditorModel) renderSubsystem(name character.Name, snap character.Snapshot, titled bool) string {
	title := ""
	if titled {
		title = titleCase(string(name))
	}
	switch {
	case !snap.HasData() && (snap.Loading() || snap.State == character.StateEmpty || snap.State == character.StateStale):
		return m.styles.Muted.Render("Loading " + titleCase(string(name)) + "…")
	case !snap.HasData():
		return m.styles.Muted.Render(titleCase(string(name)) + " is unavailable.")
	}
	return renderDocument(m.styles, title, snap.Data, m.filter)
}

func (m *EditorModel) renderOverview(snaps map[character.Name]character.Snapshot, names []character.Name) string {
	md := overviewMarkdown(m.session.Character(), m.session.Dirty(), snaps, names)
	width := max(m.viewport.Width, 20)
	key := ComputeKey(m.epoch, "overview", width, m.styles.Theme.IsDark, md)
	return m.cache.GetOrCompute(key, func() string {
		r := m.markdownRenderer(width)
		if r == nil {
			return md
		}
		out, err := r.Render(md)
		if err != nil {
			m.logger.Warn("overview render failed", zap.Error(err))
			return md
		}
		return out
	})
}

func (m *EditorModel) markdownRenderer(width int) *glamour.TermRenderer {
	if m.renderer != nil && m.rendererWidth == width {
		return m.renderer
	}
	style := "light"
	if m.styles.Theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", zap.Error(err))
		return nil
	}
	m.renderer = r
	m.rendererWidth = width
	return r
}

// View renders the page.
func (m EditorModel) View() string {
	var sb strings.Builder

	sb.WriteString(m.headerView())
	sb.WriteString("\n")
	sb.WriteString(m.tabBarView())
	sb.WriteString("\n")

	if err := m.tabErrs[m.tab]; err != nil {
		sb.WriteString(m.styles.ErrorBox.Render(fmt.Sprintf("Some data could not be loaded: %v\nr retry • esc dismiss", err)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.statusView())
	sb.WriteString("\n")
	sb.WriteString(m.promptView())
	return sb.String()
}

func (m EditorModel) headerView() string {
	c := m.session.Character()
	if c == nil {
		return m.styles.Header.Render("savesmith")
	}
	parts := []string{
		m.styles.Title.Render(c.Name),
		m.styles.Badge.Render(fmt.Sprintf("%d gp", c.Gold)),
	}
	if m.session.Dirty() {
		parts = append(parts, m.styles.Warning.Render("● unsaved"))
	}
	if c.FilePath != "" {
		parts = append(parts, m.styles.Muted.Render(c.FilePath))
	}
	return strings.Join(parts, "  ")
}

func (m EditorModel) tabBarView() string {
	tabs := make([]string, 0, len(editor.Tabs))
	for i, t := range editor.Tabs {
		label := fmt.Sprintf("%d %s", i+1, t.Title())
		if _, failed := m.tabErrs[t]; failed {
			label += " !"
		}
		if t == m.tab {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
	if gap := m.width - lipgloss.Width(row); gap > 0 {
		row = lipgloss.JoinHorizontal(lipgloss.Bottom, row, m.styles.TabGap.Render(strings.Repeat(" ", gap)))
	}
	return row
}

func (m EditorModel) statusView() string {
	var parts []string
	if m.loading {
		parts = append(parts, "loading…")
	}
	if m.busy {
		parts = append(parts, "saving changes…")
	}
	if m.filter != "" {
		parts = append(parts, fmt.Sprintf("filter: %q", m.filter))
	}
	return m.styles.Muted.Render(strings.Join(parts, " • "))
}

func (m EditorModel) promptView() string {
	if m.mode != modeNormal {
		return m.input.View()
	}
	if m.toast == nil {
		return ""
	}
	style := m.styles.Success
	switch m.toast.kind {
	case toastWarning:
		style = m.styles.Warning
	case toastError:
		style = m.styles.Error
	}
	return m.styles.Toast.Render(style.Render(m.toast.text))
}

// Help returns the key bindings for the footer.
func (m EditorModel) Help() string {
	switch m.mode {
	case modeFilter:
		return "type to filter • enter apply • esc clear"
	case modeCommand:
		return commandHelp
	}
	return "←/→ tabs • 1-8 jump • / filter • : edit • r refresh • s save • o close • q quit"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

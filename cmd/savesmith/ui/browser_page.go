package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"savesmith/internal/backend"
	"savesmith/internal/saves"
	"savesmith/internal/store"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

type browserFocus int

const (
	focusFiles browserFocus = iota
	focusRecents
)

// BrowserModel lists saves or backups and the recently opened saves.
type BrowserModel struct {
	ctx         context.Context
	browser     *saves.Browser
	recent      *store.RecentStore
	recentLimit int
	styles      Styles

	table        table.Model
	page         *saves.Page
	recents      []store.RecentSave
	recentCursor int
	focus        browserFocus
	loading      bool
	err          error
	width        int
	height       int
}

// NewBrowserModel creates the browser page. recent may be nil.
func NewBrowserModel(ctx context.Context, b *saves.Browser, recent *store.RecentStore, recentLimit int, styles Styles) BrowserModel {
	t := table.New(
		table.WithColumns(fileColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.Foreground(styles.Theme.Primary).Bold(true)
	ts.Selected = ts.Selected.Foreground(styles.Theme.Background).Background(styles.Theme.Accent)
	t.SetStyles(ts)

	return BrowserModel{
		ctx:         ctx,
		browser:     b,
		recent:      recent,
		recentLimit: recentLimit,
		styles:      styles,
		table:       t,
	}
}

func fileColumns(width int) []table.Column {
	size, modified := 10, 16
	character := 20
	name := width - size - modified - character - 8
	if name < 16 {
		name = 16
	}
	return []table.Column{
		{Title: "Name", Width: name},
		{Title: "Character", Width: character},
		{Title: "Size", Width: size},
		{Title: "Modified", Width: modified},
	}
}

// SetSize updates the table dimensions.
func (m *BrowserModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	layout := NewLayoutConfig(w, h)
	m.table.SetColumns(fileColumns(layout.ContentWidth()))
	height := layout.BrowserTableHeight()
	if len(m.recents) > 0 {
		height -= min(len(m.recents), m.recentLimit) + 2
	}
	m.table.SetHeight(max(height, 3))
}

// Init loads the first page and the recent saves.
func (m BrowserModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(m.browser.Load), m.recentsCmd())
}

// Reload re-reads the current page, keeping the position.
func (m BrowserModel) Reload() tea.Cmd {
	return tea.Batch(m.loadCmd(m.browser.Load), m.recentsCmd())
}

func (m BrowserModel) loadCmd(op func(context.Context) (*saves.Page, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		page, err := op(ctx)
		return pageLoadedMsg{page: page, err: err}
	}
}

func (m BrowserModel) recentsCmd() tea.Cmd {
	if m.recent == nil {
		return nil
	}
	ctx, recent, limit := m.ctx, m.recent, m.recentLimit
	return func() tea.Msg {
		list, err := recent.List(ctx, limit)
		return recentLoadedMsg{recents: list, err: err}
	}
}

// Update handles messages.
func (m BrowserModel) Update(msg tea.Msg) (BrowserModel, tea.Cmd) {
	switch msg := msg.(type) {
	case pageLoadedMsg:
		// A newer move owns the screen; its own result is on the way.
		if errors.Is(msg.err, saves.ErrSuperseded) ||
			(msg.page != nil && !m.browser.IsCurrent(msg.page.Seq)) {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.page = msg.page
		m.table.SetRows(fileRows(msg.page.Files))
		if m.table.Cursor() >= len(msg.page.Files) {
			m.table.SetCursor(0)
		}
		return m, nil

	case recentLoadedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("recent saves: %w", msg.err)
			return m, nil
		}
		m.recents = msg.recents
		if m.recentCursor >= len(m.recents) {
			m.recentCursor = 0
		}
		if len(m.recents) == 0 {
			m.focus = focusFiles
		}
		m.SetSize(m.width, m.height)
		return m, nil

	case savesChangedMsg:
		return m, m.Reload()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m BrowserModel) handleKey(msg tea.KeyMsg) (BrowserModel, tea.Cmd) {
	switch msg.String() {
	case "tab":
		if len(m.recents) > 0 {
			if m.focus == focusFiles {
				m.focus = focusRecents
				m.table.Blur()
			} else {
				m.focus = focusFiles
				m.table.Focus()
			}
		}
		return m, nil
	case "ctrl+r", "R":
		m.loading = true
		return m, m.Reload()
	case "b":
		kind := saves.KindBackups
		if m.browser.Kind() == saves.KindBackups {
			kind = saves.KindSaves
		}
		m.loading = true
		return m, m.loadCmd(func(ctx context.Context) (*saves.Page, error) {
			return m.browser.SetKind(ctx, kind)
		})
	case "n", "right", "pgdown":
		if m.page == nil || !m.page.HasNext() {
			return m, nil
		}
		m.loading = true
		return m, m.loadCmd(m.browser.Next)
	case "p", "left", "pgup":
		if m.page == nil || !m.page.HasPrev() {
			return m, nil
		}
		m.loading = true
		return m, m.loadCmd(m.browser.Prev)
	case "backspace", "h":
		if m.browser.AtRoot() {
			return m, nil
		}
		m.loading = true
		return m, m.loadCmd(m.browser.Up)
	}

	if m.focus == focusRecents {
		switch msg.String() {
		case "up", "k":
			if m.recentCursor > 0 {
				m.recentCursor--
			}
		case "down", "j":
			if m.recentCursor < len(m.recents)-1 {
				m.recentCursor++
			}
		case "enter":
			if m.recentCursor < len(m.recents) {
				path := m.recents[m.recentCursor].Path
				return m, func() tea.Msg { return openRequestMsg{path: path} }
			}
		}
		return m, nil
	}

	if msg.String() == "enter" {
		f, ok := m.selected()
		if !ok {
			return m, nil
		}
		if f.IsDirectory {
			m.loading = true
			path := f.Path
			return m, m.loadCmd(func(ctx context.Context) (*saves.Page, error) {
				return m.browser.Enter(ctx, path)
			})
		}
		path := f.Path
		return m, func() tea.Msg { return openRequestMsg{path: path} }
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m BrowserModel) selected() (backend.FileInfo, bool) {
	if m.page == nil {
		return backend.FileInfo{}, false
	}
	i := m.table.Cursor()
	if i < 0 || i >= len(m.page.Files) {
		return backend.FileInfo{}, false
	}
	return m.page.Files[i], true
}

func fileRows(files []backend.FileInfo) []table.Row {
	rows := make([]table.Row, 0, len(files))
	for _, f := range files {
		name, size := f.Name, humanize.Bytes(uint64(max(f.Size, 0)))
		if f.IsDirectory {
			name += "/"
			size = ""
		}
		modified := ""
		if !f.Modified.IsZero() {
			modified = humanize.Time(f.Modified)
		}
		rows = append(rows, table.Row{name, f.CharacterName, size, modified})
	}
	return rows
}

// View renders the page.
func (m BrowserModel) View() string {
	var sb strings.Builder

	title := "Saves"
	if m.browser.Kind() == saves.KindBackups {
		title = "Backups"
	}
	header := m.styles.Title.Render(title)
	if m.page != nil && m.page.Path != "" {
		header += " " + m.styles.Muted.Render(m.page.Path)
	}
	sb.WriteString(header)
	sb.WriteString("\n")

	switch {
	case m.page == nil && m.err == nil:
		sb.WriteString(m.styles.Muted.Render("Loading…"))
	case m.page != nil && len(m.page.Files) == 0:
		sb.WriteString(m.styles.Muted.Render("This folder is empty."))
	default:
		sb.WriteString(m.table.View())
	}
	sb.WriteString("\n")

	if m.page != nil {
		status := fmt.Sprintf("page %d/%d • %d files", m.page.PageNumber(), m.page.PageCount(), m.page.Total)
		if m.loading {
			status += " • loading…"
		}
		sb.WriteString(m.styles.Muted.Render(status))
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString(m.styles.Error.Render(m.err.Error()))
		sb.WriteString("\n")
	}

	if len(m.recents) > 0 {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Subtitle.Render("Recent"))
		sb.WriteString("\n")
		for i, r := range m.recents {
			line := fmt.Sprintf("%s  %s  %s",
				r.Name,
				m.styles.Muted.Render(r.CharacterName),
				m.styles.Muted.Render(humanize.Time(r.OpenedAt)))
			if m.focus == focusRecents && i == m.recentCursor {
				line = m.styles.ActiveTab.Render("▸ " + line)
			} else {
				line = "  " + line
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Help returns the key bindings for the footer.
func (m BrowserModel) Help() string {
	return "enter open • backspace up • n/p page • b backups • tab recents • R reload • q quit"
}

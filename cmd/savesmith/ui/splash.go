package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"savesmith/internal/readiness"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SplashModel gates the application on backend readiness.
type SplashModel struct {
	poller  *readiness.Poller
	handle  *readiness.Handle
	styles  Styles
	spinner spinner.Model
	bar     progress.Model

	last    readiness.Update
	ready   bool
	fatal   error
	baseURL string
	width   int
	height  int
}

// NewSplashModel creates the splash page for poller.
func NewSplashModel(poller *readiness.Poller, baseURL string, styles Styles) SplashModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return SplashModel{
		poller:  poller,
		styles:  styles,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(ProgressBarWidth)),
		baseURL: baseURL,
	}
}

// Start begins polling under ctx. A previous handle is cancelled.
func (m *SplashModel) Start(ctx context.Context) tea.Cmd {
	m.Stop()
	m.fatal = nil
	m.ready = false
	m.last = readiness.Update{}
	m.handle = m.poller.Start(ctx)
	return tea.Batch(m.spinner.Tick, waitForReadiness(m.handle))
}

// Stop cancels polling, if running.
func (m *SplashModel) Stop() {
	if m.handle != nil {
		m.handle.Cancel()
	}
}

// Ready reports whether the backend became ready.
func (m SplashModel) Ready() bool { return m.ready }

// Fatal returns the error that ended polling unsuccessfully.
func (m SplashModel) Fatal() error { return m.fatal }

// SetSize records the terminal size.
func (m *SplashModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// waitForReadiness delivers the next update, or the outcome once the
// handle's update stream is closed.
func waitForReadiness(h *readiness.Handle) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-h.Updates()
		if !ok {
			return readinessDoneMsg{handle: h, err: h.Wait()}
		}
		return readinessMsg{handle: h, update: u}
	}
}

// Update handles messages.
func (m SplashModel) Update(msg tea.Msg) (SplashModel, tea.Cmd) {
	switch msg := msg.(type) {
	case readinessMsg:
		if msg.handle != m.handle {
			return m, nil
		}
		m.last = msg.update
		return m, waitForReadiness(m.handle)

	case readinessDoneMsg:
		if msg.handle != m.handle {
			return m, nil
		}
		if msg.err == nil {
			m.ready = true
			return m, nil
		}
		if !errors.Is(msg.err, context.Canceled) {
			m.fatal = msg.err
		}
		return m, nil

	case spinner.TickMsg:
		if m.ready || m.fatal != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the page.
func (m SplashModel) View() string {
	var sb strings.Builder
	sb.WriteString(Logo(m.styles))
	sb.WriteString("\n\n")

	if m.fatal != nil {
		banner := fmt.Sprintf("The editor backend is not available.\n\n%v", m.fatal)
		if errors.Is(m.fatal, readiness.ErrTimeout) {
			banner = fmt.Sprintf("The editor backend did not become ready at %s.\n\nStart the backend, then press r to retry.", m.baseURL)
		}
		sb.WriteString(m.styles.ErrorBox.Render(banner))
		sb.WriteString("\n\n")
		sb.WriteString(m.styles.Muted.Render("r retry • q quit"))
		return m.center(sb.String())
	}

	sb.WriteString(m.spinner.View())
	sb.WriteString(" ")
	sb.WriteString(m.styles.Body.Render(m.last.Message()))
	sb.WriteString("\n\n")
	sb.WriteString(m.bar.ViewAs(m.last.Progress() / 100))
	sb.WriteString("\n\n")

	detail := fmt.Sprintf("attempt %d • %s", m.last.Attempt, m.last.Elapsed.Round(time.Second))
	if m.last.Err != nil {
		detail += " • " + m.last.Err.Error()
	}
	sb.WriteString(m.styles.Muted.Render(detail))
	return m.center(sb.String())
}

func (m SplashModel) center(s string) string {
	if m.width == 0 || m.height == 0 {
		return s
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

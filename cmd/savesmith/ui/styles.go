// Package ui implements the savesmith terminal interface: the readiness
// splash, the save browser and the tabbed character editor.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#f7f3ea") // parchment
	LightForeground = lipgloss.Color("#2b2118") // ink
	LightPrimary    = lipgloss.Color("#7a3e12") // leather brown
	LightAccent     = lipgloss.Color("#b8860b") // dark gold
	LightMuted      = lipgloss.Color("#8a7f70")
	LightBorder     = lipgloss.Color("#d8ccb4")
	LightCard       = lipgloss.Color("#fffdf8")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#1b1712")
	DarkForeground = lipgloss.Color("#efe6d6")
	DarkPrimary    = lipgloss.Color("#e0b84f") // gold (flipped)
	DarkAccent     = lipgloss.Color("#c0703a") // copper
	DarkMuted      = lipgloss.Color("#8f8475")
	DarkBorder     = lipgloss.Color("#4a3f31")
	DarkCard       = lipgloss.Color("#241f18")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#c62828")
	Success     = lipgloss.Color("#5c9e3a")
	Warning     = lipgloss.Color("#e0a526")
	Info        = lipgloss.Color("#3a7cbd")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// DetectTheme guesses the terminal background from COLORFGBG, honoring
// SAVESMITH_DARK_MODE=1. Light is the default.
func DetectTheme() Theme {
	if os.Getenv("SAVESMITH_DARK_MODE") == "1" {
		return DarkTheme()
	}

	// Format is "foreground;background"; background indexes 0-6 and 8 are dark.
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
			return DarkTheme()
		}
	}

	return LightTheme()
}

// ThemeByName resolves the ui.theme config value.
func ThemeByName(name string) Theme {
	switch name {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	default:
		return DetectTheme()
	}
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Tabs
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	TabGap    lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Spinner  lipgloss.Style
	Divider  lipgloss.Style
	Badge    lipgloss.Style
	Toast    lipgloss.Style
	ErrorBox lipgloss.Style
	Prompt   lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	tabBorder := lipgloss.RoundedBorder()
	activeBorder := tabBorder
	activeBorder.Bottom = " "
	activeBorder.BottomLeft = "┘"
	activeBorder.BottomRight = "└"

	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(theme.Card).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Tab: lipgloss.NewStyle().
			Border(tabBorder, true).
			BorderForeground(theme.Border).
			Foreground(theme.Muted).
			Padding(0, 1),

		ActiveTab: lipgloss.NewStyle().
			Border(activeBorder, true).
			BorderForeground(theme.Accent).
			Foreground(theme.Primary).
			Bold(true).
			Padding(0, 1),

		TabGap: lipgloss.NewStyle().
			Foreground(theme.Border),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(theme.Card).
			Padding(0, 1).
			Bold(true),

		Toast: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Accent).
			Padding(0, 1),

		ErrorBox: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(Destructive).
			Foreground(theme.Foreground).
			PaddingLeft(1),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),
	}
}

// DefaultStyles returns styles for the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// Logo returns the savesmith banner
func Logo(s Styles) string {
	return s.Title.Render("⚒  savesmith") + "\n" + s.Subtitle.Render("character editor for role-playing game saves")
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width < 0 {
		width = 0
	}
	return s.Divider.Render(strings.Repeat("─", width))
}

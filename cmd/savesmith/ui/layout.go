package ui

// Layout constants for consistent spacing and dimensions
const (
	ViewportHorizontalPadding = 4

	HeaderHeight    = 1
	TabBarHeight    = 3
	FooterHeight    = 1
	StatusBarHeight = 1
	PromptHeight    = 1
	ErrorBoxHeight  = 3

	TableHeaderHeight = 2

	MinimumTerminalWidth  = 60
	MinimumTerminalHeight = 16
	CompactModeWidth      = 100

	ProgressBarWidth = 40
	MaxTableColumns  = 6
	MaxCellWidth     = 28
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	IsCompact      bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height int) LayoutConfig {
	if width < MinimumTerminalWidth {
		width = MinimumTerminalWidth
	}
	if height < MinimumTerminalHeight {
		height = MinimumTerminalHeight
	}
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		IsCompact:      width < CompactModeWidth,
	}
}

// ContentWidth returns the usable content width for a viewport
func (l LayoutConfig) ContentWidth() int {
	return l.TerminalWidth - ViewportHorizontalPadding
}

// EditorBodyHeight returns the rows left for tab content below the header,
// tab bar and status line and above the footer.
func (l LayoutConfig) EditorBodyHeight() int {
	h := l.TerminalHeight - HeaderHeight - TabBarHeight - StatusBarHeight - PromptHeight - FooterHeight
	if h < 1 {
		return 1
	}
	return h
}

// BrowserTableHeight returns the rows available to the file table.
func (l LayoutConfig) BrowserTableHeight() int {
	h := l.TerminalHeight - HeaderHeight - TableHeaderHeight - StatusBarHeight - FooterHeight - 1
	if h < 3 {
		return 3
	}
	return h
}

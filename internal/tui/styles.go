package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary      = lipgloss.Color("#00D7FF") // cyan : focus / command
	colorSuccess      = lipgloss.Color("#87FF5F") // green : completed / credential
	colorWarning      = lipgloss.Color("#FFD700") // yellow : running / stopped
	colorDanger       = lipgloss.Color("#FF5555") // red : failed / error
	colorMuted        = lipgloss.Color("#555577") // dim gray : timestamps / hints
	colorBorder       = lipgloss.Color("#333355") // default border
	colorBorderActive = lipgloss.Color("#00D7FF") // focused border
	colorTitle        = lipgloss.Color("#FFFFFF") // pane titles
)

// Pane borders
var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	paneActiveStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorderActive)
)

// Status bar (top)
var statusBarStyle = lipgloss.NewStyle().
	Background(lipgloss.Color("#0D0D1A")).
	Foreground(colorPrimary).
	Padding(0, 1)

// Status icon color styles
var (
	statusRunningStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	statusCompletedStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	statusStoppedStyle   = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	statusFailedStyle    = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
)

// Session log line styles
var (
	commandLineStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	errorLineStyle   = lipgloss.NewStyle().Foreground(colorDanger)
	markerLineStyle  = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	outputLineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	timestampStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

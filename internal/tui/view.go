package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model and renders the dashboard layout.
func (m Model) View() string {
	if !m.ready {
		return "\n  ⚡ Starting Strikeforge...\n"
	}

	statusBar := m.renderStatusBar()

	leftStyle := paneStyle
	if m.focus == FocusList {
		leftStyle = paneActiveStyle
	}
	leftPane := leftStyle.Width(leftPaneOuterWidth - 2).Render(m.list.View())

	rightStyle := paneStyle
	if m.focus == FocusViewport {
		rightStyle = paneActiveStyle
	}
	rightPane := rightStyle.Width(m.width - leftPaneOuterWidth - 2).Render(m.viewport.View())

	panesRow := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	return lipgloss.JoinVertical(lipgloss.Left, statusBar, panesRow, m.renderInputBar())
}

// renderStatusBar renders the single-line header with app name, counts and key hints.
func (m Model) renderStatusBar() string {
	appName := lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		Render("⚡ STRIKEFORGE")

	counts := lipgloss.NewStyle().Foreground(colorWarning).Render(
		fmt.Sprintf("%d running / %d sessions", m.running(), len(m.sessions)))

	left := appName + "  " + counts
	if m.notice != "" {
		left += "  " + lipgloss.NewStyle().Foreground(colorMuted).Render(fitWidth(m.notice, m.width/2))
	}

	hint := lipgloss.NewStyle().Foreground(colorMuted).Render("[Tab] Pane  [c] Cancel  [q] Quit")
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(hint)-2))

	return statusBarStyle.Width(m.width).Render(left + gap + hint)
}

// renderInputBar renders the bottom launch bar with a focus-dependent prefix.
func (m Model) renderInputBar() string {
	var prefix string
	style := paneStyle
	switch m.focus {
	case FocusList:
		prefix = lipgloss.NewStyle().Foreground(colorMuted).Render("[List] ↑↓ Select  [c] Cancel  [r] Refresh")
	case FocusViewport:
		prefix = lipgloss.NewStyle().Foreground(colorMuted).Render("[Log]  ↑↓ Scroll")
	case FocusInput:
		prefix = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Render("launch>")
		style = paneActiveStyle
	}
	return style.Width(m.width - 2).Render(prefix + " " + m.input.View())
}

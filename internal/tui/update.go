package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/0x6d61/strikeforge/internal/attack"
)

// Update implements tea.Model and routes all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg.Width, msg.Height)
		m.ready = true
		m.rebuildViewport()
		return m, nil

	// スピナーのティックごとに一覧と溜まった行をまとめて反映する
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.running() > 0 {
			m.syncListItems()
			m.dirty = true
		}
		if m.dirty {
			m.rebuildViewport()
		}
		return m, cmd

	case SessionEventMsg:
		m.handleSessionEvent(attack.Event(msg))
		// 次のイベントを待つコマンドを再登録（Bubble Tea の非同期ループパターン）
		if m.events != nil {
			return m, SessionEventCmd(m.events)
		}
		return m, nil

	case eventsClosedMsg:
		m.events = nil
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleSessionEvent はイベントを画面状態に反映する。
func (m *Model) handleSessionEvent(e attack.Event) {
	switch e.Type {
	case attack.EventStatus, attack.EventComplete:
		m.refreshSessions()
		if e.Type == attack.EventComplete {
			m.notice = fmt.Sprintf("%s → %s: %s", e.Vector, e.Target, e.Status)
		}
		m.rebuildViewport()
	case attack.EventCredential, attack.EventVulnerability:
		m.syncListItems()
		if e.Finding != nil {
			m.notice = fmt.Sprintf("%s: %s", e.Target, e.Finding.Summary())
		}
		m.markDirty(e.SessionID)
	default:
		m.markDirty(e.SessionID)
	}
}

// markDirty は選択中のセッションのイベントなら次のティックで再描画させる。
func (m *Model) markDirty(sessionID string) {
	if s := m.activeSession(); s != nil && s.ID == sessionID {
		m.dirty = true
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.cycleFocus()
		return m, nil
	}

	switch m.focus {
	case FocusInput:
		return m.handleInputKey(msg)
	case FocusViewport:
		if msg.String() == "q" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	// FocusList
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "c":
		m.cancelSelected()
		return m, nil
	case "r":
		m.refreshSessions()
		m.rebuildViewport()
		return m, nil
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.sessions)-1 {
			m.selected++
		}
	default:
		return m, nil
	}
	m.list.Select(m.selected)
	m.rebuildViewport()
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focus = FocusList
		m.input.Blur()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if text != "" {
			m.launch(text)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// cancelSelected は選択中のセッションをキャンセルする。
func (m *Model) cancelSelected() {
	s := m.activeSession()
	if s == nil || m.ctrl == nil {
		return
	}
	if s.Status().Terminal() {
		m.notice = fmt.Sprintf("%s は終了済みです", s.Vector.Name)
		return
	}
	if err := m.ctrl.Cancel(s.ID); err != nil {
		m.notice = "cancel: " + err.Error()
		return
	}
	m.notice = fmt.Sprintf("%s → %s をキャンセルしました", s.Vector.Name, s.Target)
}

// launch は "<vector> <target> [port]" を解釈してセッションを起動する。
func (m *Model) launch(text string) {
	name, target, port, err := parseLaunchInput(text)
	if err != nil {
		m.notice = err.Error()
		return
	}
	if m.ctrl == nil || m.vectors == nil {
		m.notice = "no session manager connected"
		return
	}
	v, ok := m.vectors.Get(name)
	if !ok {
		m.notice = fmt.Sprintf("unknown vector %q", name)
		return
	}
	id, err := m.ctrl.Start(m.ctx, v, target, port)
	if err != nil {
		var aerr *attack.Error
		if errors.As(err, &aerr) && aerr.Hint != "" {
			m.notice = fmt.Sprintf("%v (hint: %s)", err, aerr.Hint)
		} else {
			m.notice = err.Error()
		}
	} else {
		m.notice = fmt.Sprintf("started %s → %s:%d", v.Name, target, port)
	}

	// 失敗したセッションも一覧に出る。起動したものを選択する。
	m.refreshSessions()
	for i, s := range m.sessions {
		if s.ID == id {
			m.selected = i
			m.list.Select(i)
			break
		}
	}
	m.rebuildViewport()
}

// parseLaunchInput は "<vector> <target> [port]" を分解する。
func parseLaunchInput(text string) (vector, target string, port int, err error) {
	fields := strings.Fields(text)
	if len(fields) < 2 || len(fields) > 3 {
		return "", "", 0, fmt.Errorf("usage: <vector> <target> [port]")
	}
	vector, target = fields[0], fields[1]
	if len(fields) == 3 {
		port, err = strconv.Atoi(fields[2])
		if err != nil || port < 0 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid port %q", fields[2])
		}
	}
	return vector, target, port, nil
}

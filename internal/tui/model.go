// Package tui implements the Bubble Tea dashboard for Strikeforge attack sessions.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0x6d61/strikeforge/internal/attack"
)

// FocusState tracks which pane has keyboard focus.
type FocusState int

const (
	FocusList     FocusState = iota // left pane: session list
	FocusViewport                   // right pane: session log
	FocusInput                      // bottom: launch bar
)

// leftPaneOuterWidth is the total rendered width of the left pane (borders included).
const leftPaneOuterWidth = 40

// SessionEventMsg は Manager から届く Bubble Tea メッセージ。
type SessionEventMsg attack.Event

// eventsClosedMsg は購読チャネルが閉じられたことを表す。
type eventsClosedMsg struct{}

// SessionEventCmd は次のセッションイベントを待つ Bubble Tea コマンド。
func SessionEventCmd(ch <-chan attack.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return SessionEventMsg(e)
	}
}

// Controller は TUI から操作するセッション管理。*attack.Manager が満たす。
type Controller interface {
	Start(ctx context.Context, v attack.AttackVector, target string, port int) (string, error)
	Cancel(id string) error
	List() []*attack.Session
}

// VectorSource は名前から攻撃ベクターを引く。*attack.Catalog が満たす。
type VectorSource interface {
	Get(name string) (attack.AttackVector, bool)
}

// sessionListItem wraps *attack.Session to satisfy the list.Item interface.
type sessionListItem struct {
	s     *attack.Session
	frame string
}

func (i sessionListItem) Title() string {
	icon := statusIcon(i.s.Status(), i.frame)
	return fmt.Sprintf("%s %s", icon, i.s.Vector.Name)
}

func (i sessionListItem) Description() string {
	done, total := i.s.Progress()
	return fmt.Sprintf("   %s:%d  %d/%d  %d findings", i.s.Target, i.s.Port, done, total, len(i.s.Findings()))
}

func (i sessionListItem) FilterValue() string { return i.s.Vector.Name + " " + i.s.Target }

// Model is the root Bubble Tea model for the session dashboard.
type Model struct {
	width    int
	height   int
	ready    bool
	focus    FocusState
	sessions []*attack.Session
	selected int // index into sessions

	list     list.Model
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	ctx     context.Context
	ctrl    Controller
	vectors VectorSource
	events  <-chan attack.Event

	// notice は直近の操作結果（起動・キャンセル・エラー）
	notice string
	// dirty はビューポートの再描画待ち。行イベントはスピナーのティックでまとめて反映する。
	dirty bool
	// summaries は glamour で描画した結果サマリーのキャッシュ（"id@幅" → 描画結果）
	summaries map[string]string
}

// New は Manager・カタログ・イベントチャネルに接続した Model を返す。
// events が nil なら更新はキー操作時のみ。
func New(ctx context.Context, ctrl Controller, vectors VectorSource, events <-chan attack.Event) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(colorPrimary).
		BorderForeground(colorPrimary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(colorMuted).
		BorderForeground(colorPrimary)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "SESSIONS"
	l.Styles.Title = lipgloss.NewStyle().Foreground(colorTitle).Bold(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	ti := textinput.New()
	ti.Placeholder = "<vector> <target> [port]  例: ssh-brute-force 10.0.0.5 22"
	ti.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorWarning)

	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		list:      l,
		viewport:  viewport.New(0, 0),
		input:     ti,
		spinner:   sp,
		ctx:       ctx,
		ctrl:      ctrl,
		vectors:   vectors,
		events:    events,
		summaries: make(map[string]string),
	}
	m.refreshSessions()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.events != nil {
		cmds = append(cmds, SessionEventCmd(m.events))
	}
	return tea.Batch(cmds...)
}

// activeSession returns the currently selected session, or nil if none.
func (m *Model) activeSession() *attack.Session {
	if m.selected < 0 || m.selected >= len(m.sessions) {
		return nil
	}
	return m.sessions[m.selected]
}

// refreshSessions は Controller から一覧を取り直し、選択中のセッションを維持する。
func (m *Model) refreshSessions() {
	var keep string
	if s := m.activeSession(); s != nil {
		keep = s.ID
	}
	if m.ctrl != nil {
		m.sessions = m.ctrl.List()
	}
	m.selected = 0
	for i, s := range m.sessions {
		if s.ID == keep {
			m.selected = i
			break
		}
	}
	m.syncListItems()
}

// syncListItems refreshes list items to reflect the current session states.
func (m *Model) syncListItems() {
	frame := m.spinner.View()
	items := make([]list.Item, len(m.sessions))
	for i, s := range m.sessions {
		items[i] = sessionListItem{s: s, frame: frame}
	}
	m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(m.selected)
	}
}

// running は実行中のセッション数。
func (m *Model) running() int {
	n := 0
	for _, s := range m.sessions {
		if s.Status() == attack.StatusRunning {
			n++
		}
	}
	return n
}

// rebuildViewport regenerates the viewport content for the active session.
func (m *Model) rebuildViewport() {
	m.dirty = false
	m.viewport.SetContent(m.sessionContent())
	m.viewport.GotoBottom()
}

// sessionContent は選択中セッションのログと、終了済みなら結果サマリーを返す。
func (m *Model) sessionContent() string {
	s := m.activeSession()
	if s == nil {
		return "  セッションがありません。\n\n  [Tab] で入力欄に移動し、ベクター名とターゲットを入力:\n    例: ssh-brute-force 10.0.0.5 22\n        directory-enumeration example.com 80"
	}

	var sb strings.Builder
	sb.WriteString(renderSessionHeader(s, m.spinner.View()))
	sb.WriteString("\n")
	sb.WriteString(renderOutput(s.Output(), m.viewport.Width))

	if r := s.Result(); r != nil {
		sb.WriteString("\n")
		sb.WriteString(m.summaryFor(r))
	}
	return sb.String()
}

// summaryFor は結果サマリーを描画する。終了済みの結果は不変なので幅ごとにキャッシュする。
func (m *Model) summaryFor(r *attack.AttackResult) string {
	key := fmt.Sprintf("%s@%d", r.SessionID, m.viewport.Width)
	if cached, ok := m.summaries[key]; ok {
		return cached
	}
	md := resultMarkdown(r)
	rendered, err := renderMarkdown(md, m.viewport.Width)
	if err != nil {
		rendered = md + "\n"
	}
	m.summaries[key] = rendered
	return rendered
}

// handleResize recalculates all component dimensions from the terminal size.
func (m *Model) handleResize(w, h int) {
	m.width = w
	m.height = h

	// status bar 1 + launch bar 3 + pane borders 2
	paneH := h - 1 - 3 - 2
	if paneH < 3 {
		paneH = 3
	}
	m.list.SetSize(leftPaneOuterWidth-2, paneH)

	rightW := w - leftPaneOuterWidth - 2
	if rightW < 10 {
		rightW = 10
	}
	m.viewport.Width = rightW
	m.viewport.Height = paneH

	m.input.Width = w - 6
}

// cycleFocus advances focus: List → Viewport → Input → List.
func (m *Model) cycleFocus() {
	switch m.focus {
	case FocusList:
		m.focus = FocusViewport
	case FocusViewport:
		m.focus = FocusInput
		m.input.Focus()
	case FocusInput:
		m.focus = FocusList
		m.input.Blur()
	}
}

package attack

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/0x6d61/strikeforge/internal/parser"
	"github.com/0x6d61/strikeforge/internal/tools"
)

// Status はセッションの状態。running から終端状態へ一方向にしか遷移しない。
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// Terminal は終端状態かどうか。
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// Session は1回の攻撃実行。Manager が所有し、書き込むのは駆動ゴルーチンだけ。
// 読み取り側（List や TUI）は mu で守られたスナップショットを取る。
type Session struct {
	ID        string
	Vector    AttackVector
	Target    string
	Port      int
	CreatedAt time.Time

	mu          sync.RWMutex
	status      Status
	endedAt     time.Time
	output      []tools.OutputLine
	findings    []string
	typed       []parser.Finding
	completed   int
	total       int
	currentTool string
	err         error
	result      *AttackResult

	done   chan struct{}
	cancel context.CancelFunc
}

func newSession(id string, v AttackVector, target string, port int) *Session {
	return &Session{
		ID:        id,
		Vector:    v,
		Target:    target,
		Port:      port,
		CreatedAt: time.Now(),
		status:    StatusRunning,
		total:     len(v.Commands),
		done:      make(chan struct{}),
	}
}

// Status は現在の状態を返す。
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Done はセッションが終端状態になり結果が確定したら閉じられる。
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// EndedAt は終端状態に入った時刻。実行中はゼロ値。
func (s *Session) EndedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endedAt
}

// Err は失敗・中断の理由。成功時は nil。
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Result は確定した結果。終端状態になるまでは nil。
func (s *Session) Result() *AttackResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Output は出力ログのコピーを返す。
func (s *Session) Output() []tools.OutputLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tools.OutputLine, len(s.output))
	copy(out, s.output)
	return out
}

// OutputText は出力ログを改行で連結して返す。
func (s *Session) OutputText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var b strings.Builder
	for i, l := range s.output {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Content)
	}
	return b.String()
}

// Findings は人間向けの発見物一覧のコピーを返す。
func (s *Session) Findings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.findings))
	copy(out, s.findings)
	return out
}

// Progress は完了したコマンド数と総数を返す。
func (s *Session) Progress() (completed, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed, s.total
}

// CurrentTool は実行中のツール名。
func (s *Session) CurrentTool() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTool
}

// Summary は1行の要約。
// "[3f2a…] running 1/2 brute-force ssh-brute-force → 10.0.0.5:22 (3 findings)"
func (s *Session) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("[%s] %s %d/%d %s %s → %s:%d (%d findings)",
		shortID(s.ID), s.status, s.completed, s.total,
		s.Vector.Category, s.Vector.Name, s.Target, s.Port, len(s.findings))
}

func (s *Session) appendLine(line string) {
	s.mu.Lock()
	s.output = append(s.output, tools.OutputLine{Time: time.Now(), Content: line})
	s.mu.Unlock()
}

func (s *Session) addFinding(f parser.Finding) {
	s.mu.Lock()
	s.typed = append(s.typed, f)
	s.findings = append(s.findings, f.Summary())
	s.mu.Unlock()
}

func (s *Session) setCurrentTool(tool string) {
	s.mu.Lock()
	s.currentTool = tool
	s.mu.Unlock()
}

func (s *Session) commandDone() {
	s.mu.Lock()
	s.completed++
	s.mu.Unlock()
}

func (s *Session) typedFindings() []parser.Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]parser.Finding, len(s.typed))
	copy(out, s.typed)
	return out
}

// finish は終端状態と結果を1回だけ確定させる。2回目以降は false。
// Done を閉じるのは呼び出し側が通知を済ませた後の markDone。
func (s *Session) finish(status Status, err error, endedAt time.Time, result *AttackResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return false
	}
	s.status = status
	s.err = err
	s.endedAt = endedAt
	s.currentTool = ""
	s.result = result
	return true
}

func (s *Session) markDone() {
	close(s.done)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Package tools resolves, templates and runs external security tools.
package tools

import "time"

// OutputLine はツール生出力の1行を表す。stdout と stderr は合流済み。
type OutputLine struct {
	Time    time.Time
	Content string
}

// Entity はツール出力から抽出された単一の発見物。
type Entity struct {
	Type    EntityType
	Value   string
	Context string // 抽出元の行（参照用）
}

// EntityType は発見物の種別。
type EntityType string

const (
	EntityPort EntityType = "port"
	EntityCVE  EntityType = "cve"
	EntityURL  EntityType = "url"
	EntityIP   EntityType = "ip"
)

// RunRecord は1コマンド分の実行記録。
//
// セッションの出力ログとは別に、コマンド単位で Log Store に保存される:
//   - Lines    : そのコマンドの生出力全行
//   - Entities : 汎用パターンで抽出した Entity
type RunRecord struct {
	ID       string // "nmap@10.0.0.5@1706000000" のような一意キー
	Session  string
	ToolName string
	Target   string
	Path     string
	Args     []string
	ExitCode int
	State    RunState

	Lines    []OutputLine
	Entities []Entity

	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// CleanExit はプロセスが自然終了し、終了コード 0 だったかを返す。
func (r *RunRecord) CleanExit() bool {
	return r.State == RunCompleted && r.ExitCode == 0 && r.Err == nil
}

// Texts は生出力を文字列スライスで返す。
func (r *RunRecord) Texts() []string {
	out := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = l.Content
	}
	return out
}

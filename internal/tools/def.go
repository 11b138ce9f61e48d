package tools

import "time"

// ToolDef はYAMLから読み込むツール定義。
// tools/*.yaml を追加するだけで、解決名・インストール案内・パーサー割り当てを変えられる。
type ToolDef struct {
	Name        string   `yaml:"name"`
	Binary      string   `yaml:"binary"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	TimeoutSec  int      `yaml:"timeout"`
	InstallHint string   `yaml:"install"`
	Parser      string   `yaml:"parser"` // 空なら Name をパーサーIDとして使う
}

// BinaryName は実行ファイル名を返す。未指定なら論理名と同じ。
func (d *ToolDef) BinaryName() string {
	if d.Binary != "" {
		return d.Binary
	}
	return d.Name
}

// ParserID は出力パーサーの識別子を返す。
func (d *ToolDef) ParserID() string {
	if d.Parser != "" {
		return d.Parser
	}
	return d.Name
}

// Timeout はツール既定のタイムアウト。0 は「呼び出し側の既定値を使う」。
func (d *ToolDef) Timeout() time.Duration {
	if d.TimeoutSec <= 0 {
		return 0
	}
	return time.Duration(d.TimeoutSec) * time.Second
}

package tools

import (
	"fmt"
	"strings"
)

// TruncateConfig は出力プレビューの切り捨て設定。
type TruncateConfig struct {
	HeadLines int // 先頭から残す行数
	TailLines int // 末尾から残す行数
}

// DefaultPreviewConfig はコンソール・TUI の結果プレビュー用の既定値。
var DefaultPreviewConfig = TruncateConfig{HeadLines: 20, TailLines: 10}

// Truncate は先頭 HeadLines 行 + 末尾 TailLines 行を残し、中間を省略した文字列を返す。
// 合計行数が head+tail 以下なら全行を返す。
func Truncate(lines []string, cfg TruncateConfig) string {
	head, tail := cfg.HeadLines, cfg.TailLines
	if head < 0 {
		head = 0
	}
	if tail < 0 {
		tail = 0
	}
	total := len(lines)
	if total == 0 {
		return ""
	}
	if head+tail >= total {
		return strings.Join(lines, "\n")
	}

	var sb strings.Builder
	for _, l := range lines[:head] {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	sb.WriteString(fmt.Sprintf("--- %d行省略 ---\n", total-head-tail))
	for i, l := range lines[total-tail:] {
		sb.WriteString(l)
		if i < tail-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

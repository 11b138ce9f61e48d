package parser

import "strings"

// genericExclusions は進捗表示やバナーなど、発見物にしない行の先頭。
var genericExclusions = []string{
	"starting",
	"progress",
	"===",
	"---",
	"#",
	"[*]",
	"[info]",
	"by ",
	"version",
	"copyright",
	"usage",
}

// NewGeneric は専用パーサーのないツール向けの汎用パーサーを返す。
// 除外リストに当たらない空でない行を low の覚え書きとして記録する。
func NewGeneric(ctx Context) Parser {
	return newRuleParser(ctx, genericRule)
}

func genericRule(_ Context, line string) []Finding {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	lower := strings.ToLower(trimmed)
	for _, ex := range genericExclusions {
		if strings.HasPrefix(lower, ex) {
			return nil
		}
	}
	return []Finding{{Kind: KindNote, Note: trimmed}}
}

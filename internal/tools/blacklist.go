package tools

import "regexp"

// DefaultBlacklistPatterns は設定がないときに使う危険パターン。
var DefaultBlacklistPatterns = []string{
	`rm\s+-rf\s+/`,
	`dd\s+if=`,
	`mkfs`,
	`\bshutdown\b`,
	`\breboot\b`,
	`:\(\)\s*\{`,
}

// Blacklist はコマンドテンプレートに含まれてはならないパターンを保持する。
// アタックベクターのロード時に全テンプレートを検査する。
type Blacklist struct {
	patterns []*regexp.Regexp
}

// NewBlacklist は patterns をコンパイルして Blacklist を返す。
// 不正な正規表現はパニックではなくスキップする。
func NewBlacklist(patterns []string) *Blacklist {
	bl := &Blacklist{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue // 不正なパターンは無視
		}
		bl.patterns = append(bl.patterns, re)
	}
	return bl
}

// Match は command がブラックリストのいずれかに一致するか検査する。
func (b *Blacklist) Match(command string) bool {
	_, ok := b.Matching(command)
	return ok
}

// Matching は一致したパターン文字列を返す。
func (b *Blacklist) Matching(command string) (string, bool) {
	if b == nil {
		return "", false
	}
	for _, re := range b.patterns {
		if re.MatchString(command) {
			return re.String(), true
		}
	}
	return "", false
}

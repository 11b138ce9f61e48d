package tools

import (
	"regexp"
	"strings"
)

// universalPatterns はツール種別を問わず通用する汎用抽出パターン。
// パーサーではなく「見つかれば拾う」greedy な抽出。
var universalPatterns = []struct {
	typ     EntityType
	pattern *regexp.Regexp
}{
	{
		EntityPort,
		regexp.MustCompile(`\b(\d{1,5}/(tcp|udp))\s+open`),
	},
	{
		EntityCVE,
		regexp.MustCompile(`\b(CVE-\d{4}-\d{4,})\b`),
	},
	{
		EntityURL,
		regexp.MustCompile(`https?://[^\s"'<>]+`),
	},
	{
		EntityIP,
		// プライベート + グローバル IP を広く拾う（ループバックは除外）
		regexp.MustCompile(`\b((?:(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d\d?))\b`),
	},
}

// loopbackPrefixes はEntity抽出で除外するIPプレフィックス。
var loopbackPrefixes = []string{"127.", "0.0.0.0"}

// EntityCollector はストリーム中の行から Entity を逐次抽出する。
// 重複は除き、順序は出現順。ゴルーチンセーフではない（1コマンド1コレクター）。
type EntityCollector struct {
	seen     map[string]bool
	entities []Entity
}

// NewEntityCollector は空のコレクターを返す。
func NewEntityCollector() *EntityCollector {
	return &EntityCollector{seen: make(map[string]bool)}
}

// Add は1行を検査し、新しく見つかった Entity を返す。
func (c *EntityCollector) Add(line string) []Entity {
	var found []Entity
	for _, p := range universalPatterns {
		for _, m := range p.pattern.FindAllStringSubmatch(line, -1) {
			// サブグループがある場合は m[1]、ない場合は m[0] を値とする。
			val := m[0]
			if len(m) > 1 && m[1] != "" {
				val = m[1]
			}
			if p.typ == EntityIP && isLoopback(val) {
				continue
			}
			key := string(p.typ) + ":" + val
			if c.seen[key] {
				continue
			}
			c.seen[key] = true
			e := Entity{Type: p.typ, Value: val, Context: strings.TrimSpace(line)}
			c.entities = append(c.entities, e)
			found = append(found, e)
		}
	}
	return found
}

// Entities はこれまでに抽出した全 Entity を返す。
func (c *EntityCollector) Entities() []Entity {
	out := make([]Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// ExtractEntities は lines から全ユニバーサルパターンに一致する Entity を抽出する。
func ExtractEntities(lines []string) []Entity {
	c := NewEntityCollector()
	for _, line := range lines {
		c.Add(line)
	}
	return c.entities
}

func isLoopback(ip string) bool {
	for _, prefix := range loopbackPrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	return false
}

package parser

import (
	"fmt"
	"strings"
)

// Severity は発見物の深刻度。
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	// SeverityInfo は「何も見つかっていない」ときの全体深刻度にだけ使う。
	SeverityInfo Severity = "info"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// IsValid は既知の深刻度かどうかを返す。
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank は比較用の順位。未知の値は -1。
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// AtLeast は s が other 以上の深刻度かどうか。
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

func (s Severity) String() string { return string(s) }

// ParseSeverity は文字列を Severity に変換する（大文字小文字は無視）。
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", fmt.Errorf("invalid severity: %s", s)
	}
	return sev, nil
}

// Worst は深刻度の高い方を返す。
func Worst(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// 汎用脆弱性スキャナーが重要行に付けるプレフィックス。
const (
	criticalPrefix = "[!!]"
	highPrefix     = "[!]"
)

// ClassifySeverity は固定のキーワードラダーで行の深刻度を決める。
//
//	"critical" または行頭 [!!] → critical
//	"high" または行頭 [!]      → high
//	"medium"                   → medium
//	それ以外                    → low
func ClassifySeverity(line string) Severity {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "critical") || strings.HasPrefix(trimmed, criticalPrefix):
		return SeverityCritical
	case strings.Contains(lower, "high") || strings.HasPrefix(trimmed, highPrefix):
		return SeverityHigh
	case strings.Contains(lower, "medium"):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

package parser

import (
	"regexp"
	"strings"
)

// 脆弱性IDとして扱うプレフィックス。
const (
	cvePrefix   = "CVE-"
	osvdbPrefix = "OSVDB-"
)

var vulnID = regexp.MustCompile(`\b((?:CVE-\d{4}-\d{4,})|(?:OSVDB-\d+))\b`)

// nucleiTag は nuclei の "[template-id] [proto] [severity] url" 形式。
var nucleiTag = regexp.MustCompile(`^\s*\[([^\]]+)\]\s+\[([^\]]+)\]\s+\[(critical|high|medium|low|info)\]\s*(.*)$`)

// NewNikto は nikto の出力パーサーを返す。
func NewNikto(ctx Context) Parser {
	return newRuleParser(ctx, vulnIDRule)
}

// NewNuclei は nuclei の出力パーサーを返す。
// 脆弱性IDのない行でも深刻度タグが low 以上なら発見物にする。
func NewNuclei(ctx Context) Parser {
	return newRuleParser(ctx, func(ctx Context, line string) []Finding {
		if fs := vulnIDRule(ctx, line); fs != nil {
			return fs
		}
		m := nucleiTag.FindStringSubmatch(line)
		if m == nil || m[3] == "info" {
			return nil
		}
		sev, _ := ParseSeverity(m[3])
		return []Finding{{
			Kind: KindVulnerability,
			Vulnerability: &VulnerabilityFinding{
				Type:           m[1],
				Severity:       sev,
				Description:    strings.TrimSpace(m[1] + " " + m[4]),
				Proof:          line,
				Recommendation: recommendationFor(m[1]),
			},
		}}
	})
}

func vulnIDRule(_ Context, line string) []Finding {
	if !strings.Contains(line, cvePrefix) && !strings.Contains(line, osvdbPrefix) {
		return nil
	}
	id := ""
	if m := vulnID.FindStringSubmatch(line); m != nil {
		id = m[1]
	} else {
		// "OSVDB-0" のような桁の欠けた表記もIDとして残す
		for _, f := range strings.Fields(line) {
			if strings.Contains(f, cvePrefix) || strings.Contains(f, osvdbPrefix) {
				id = strings.Trim(f, ":,[]()")
				break
			}
		}
	}
	return []Finding{{
		Kind: KindVulnerability,
		Vulnerability: &VulnerabilityFinding{
			Type:           id,
			Severity:       ClassifySeverity(line),
			Description:    describe(line),
			Proof:          line,
			Recommendation: recommendationFor(id),
		},
	}}
}

// describe は nikto の "+ " や nuclei のタグを落とした説明文を返す。
func describe(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "+ ")
	return strings.TrimSpace(s)
}

func recommendationFor(id string) string {
	if id == "" {
		return "Review the finding and apply vendor guidance"
	}
	return "Review " + id + " and apply the vendor patch or mitigation"
}

package parser

import (
	"regexp"
	"strings"
)

var sqlmapParam = regexp.MustCompile(`(?i)parameter:?\s+'?([A-Za-z0-9_\-\[\]\.]+)'?`)

// NewSQLMap は sqlmap の出力パーサーを返す。
func NewSQLMap(ctx Context) Parser {
	return newRuleParser(ctx, sqlmapRule)
}

func sqlmapRule(ctx Context, line string) []Finding {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "parameter") || !strings.Contains(lower, "vulnerable") {
		return nil
	}
	if strings.Contains(lower, "not vulnerable") || strings.Contains(lower, "not injectable") {
		return nil
	}
	desc := "SQL injection"
	if m := sqlmapParam.FindStringSubmatch(line); m != nil {
		desc = "SQL injection in parameter '" + m[1] + "'"
	}
	return []Finding{{
		Kind: KindVulnerability,
		Vulnerability: &VulnerabilityFinding{
			Type:           "sql-injection",
			Severity:       SeverityCritical,
			Description:    desc,
			Proof:          line,
			Recommendation: "Use parameterized queries and validate input on " + ctx.Target,
		},
	}}
}

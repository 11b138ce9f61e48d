package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var nmapPort = regexp.MustCompile(`^(\d+)/(tcp|udp)\s+open\s+(\S+)\s*(.*)$`)

// NewNmap は nmap の出力パーサーを返す。
// 開いているポートはサービスとして、NSE スクリプトの VULNERABLE 行は high の脆弱性として拾う。
func NewNmap(ctx Context) Parser {
	return newRuleParser(ctx, nmapRule)
}

func nmapRule(_ Context, line string) []Finding {
	trimmed := strings.TrimSpace(line)
	if m := nmapPort.FindStringSubmatch(trimmed); m != nil {
		port, _ := strconv.Atoi(m[1])
		return []Finding{{
			Kind: KindService,
			Service: &Service{
				Port:     port,
				Protocol: m[2],
				Name:     m[3],
				Banner:   strings.TrimSpace(m[4]),
			},
		}}
	}
	upper := strings.ToUpper(trimmed)
	if strings.Contains(upper, "VULNERABLE") && !strings.Contains(upper, "NOT VULNERABLE") {
		desc := strings.TrimSpace(strings.TrimLeft(trimmed, "|_ "))
		typ := "nse-vulnerable"
		if m := vulnID.FindStringSubmatch(trimmed); m != nil {
			typ = m[1]
		}
		return []Finding{{
			Kind: KindVulnerability,
			Vulnerability: &VulnerabilityFinding{
				Type:           typ,
				Severity:       SeverityHigh,
				Description:    desc,
				Proof:          line,
				Recommendation: recommendationFor(typ),
			},
		}}
	}
	return nil
}

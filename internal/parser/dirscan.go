package parser

import (
	"regexp"
	"strings"
)

// dirStatus は 200/301/302 を示すステータス表記。
// gobuster: "/admin (Status: 301)"、dirb: "+ http://x/admin (CODE:200|SIZE:12)"、
// ffuf: "admin [Status: 200, Size: 12, ...]"、dirsearch: "200 -  1KB - /admin"
var dirStatus = regexp.MustCompile(`(?i)(?:status:\s*|code:\s*|^\s*|\]\s+)(200|301|302)\b`)

// dirMarker は dirb が見つけたディレクトリに付ける印。
const dirMarker = "==> DIRECTORY:"

// NewDirScan はディレクトリ列挙ツール（gobuster / dirb / ffuf / dirsearch）のパーサーを返す。
func NewDirScan(ctx Context) Parser {
	return newRuleParser(ctx, dirScanRule)
}

func dirScanRule(_ Context, line string) []Finding {
	if idx := strings.Index(strings.ToUpper(line), strings.ToUpper(dirMarker)); idx >= 0 {
		rest := strings.TrimSpace(line[idx+len(dirMarker):])
		if rest == "" {
			return nil
		}
		return []Finding{{Kind: KindPath, Path: strings.Fields(rest)[0]}}
	}
	if !dirStatus.MatchString(line) {
		return nil
	}
	path := pickPath(line)
	if path == "" {
		return nil
	}
	return []Finding{{Kind: KindPath, Path: path}}
}

// pickPath は "/" か "http" で始まるトークンを優先し、なければ先頭トークンを使う。
func pickPath(line string) string {
	fields := strings.Fields(line)
	for _, f := range fields {
		if strings.HasPrefix(f, "/") || strings.HasPrefix(f, "http://") || strings.HasPrefix(f, "https://") {
			return strings.TrimRight(f, ",")
		}
	}
	for _, f := range fields {
		switch f {
		case "+", "-", "200", "301", "302":
			continue
		}
		return strings.TrimRight(f, ",")
	}
	return ""
}

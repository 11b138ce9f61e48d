package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SaveRawOutput はセッションの生出力をファイルに保存する。
// baseDir/<host>/raw/<timestamp>_<label>.txt に保存し、ファイルパスを返す。
func SaveRawOutput(baseDir, host, label string, header map[string]string, lines []string) (string, error) {
	rawDir := filepath.Join(baseDir, sanitizeFilename(host), "raw")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("%s_%s.txt", timestamp, sanitizeLabel(label))
	filePath := filepath.Join(rawDir, filename)

	// ヘッダー付きで保存
	var sb strings.Builder
	for _, k := range sortedKeys(header) {
		fmt.Fprintf(&sb, "# %s: %s\n", k, header[k])
	}
	sb.WriteString("# Timestamp: ")
	sb.WriteString(time.Now().Format(time.RFC3339))
	sb.WriteString("\n# ---\n")
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}

	if err := os.WriteFile(filePath, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("write raw output: %w", err)
	}

	return filePath, nil
}

// sanitizeLabel はファイル名に使えない文字を _ に置き換える。
func sanitizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, label)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

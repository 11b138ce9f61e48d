// Package memory はセッションの発見物（脆弱性・認証情報・アーティファクト）を
// ホストごとの Markdown ファイルに永続化する。
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0x6d61/strikeforge/internal/parser"
)

// EntryType は記録の種別。
type EntryType string

const (
	EntryVulnerability EntryType = "vulnerability"
	EntryCredential    EntryType = "credential"
	EntryArtifact      EntryType = "artifact" // パス・サービスなど
	EntryNote          EntryType = "note"
)

// Entry はメモリファイルの1エントリ。
type Entry struct {
	Type        EntryType
	Title       string
	Description string
	Severity    string
	Source      string // 発見したツール
}

// FromFinding はパーサーの発見物を Entry に変換する。
func FromFinding(f parser.Finding) *Entry {
	e := &Entry{Source: f.Tool, Description: f.Line}
	switch f.Kind {
	case parser.KindCredential:
		c := f.Credential
		e.Type = EntryCredential
		e.Title = fmt.Sprintf("%s/%d: %s / %s", c.Service, c.Port, c.Username, c.Password)
	case parser.KindVulnerability:
		v := f.Vulnerability
		e.Type = EntryVulnerability
		e.Title = v.Type
		e.Severity = string(v.Severity)
		e.Description = v.Description
		if v.Recommendation != "" {
			e.Description += " / " + v.Recommendation
		}
	case parser.KindPath:
		e.Type = EntryArtifact
		e.Title = "path " + f.Path
	case parser.KindService:
		e.Type = EntryArtifact
		e.Title = f.Summary()
	default:
		e.Type = EntryNote
		e.Title = f.Note
	}
	return e
}

// Store はメモリファイルの読み書きを管理する。
type Store struct {
	dir string // メモリファイルを保存するディレクトリ
	mu  sync.Mutex
}

// NewStore は指定ディレクトリを使う Store を返す。
// ディレクトリが存在しない場合は Record 時に自動作成する。
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Record は発見物を host に対応するファイルに追記する。
// ファイルが存在しない場合は新規作成してヘッダーを書く。
func (s *Store) Record(host string, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("memory: mkdir: %w", err)
	}

	path := filepath.Join(s.dir, sanitizeFilename(host)+".md")

	isNew := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("memory: open file: %w", err)
	}
	defer f.Close()

	if isNew {
		header := fmt.Sprintf("# Strikeforge Findings: %s\n\nGenerated: %s\n\n", host, time.Now().Format("2006-01-02 15:04:05"))
		if _, err := f.WriteString(header); err != nil {
			return fmt.Errorf("memory: write header: %w", err)
		}
	}

	if _, err := f.WriteString(formatEntry(e)); err != nil {
		return fmt.Errorf("memory: write entry: %w", err)
	}
	return nil
}

// Read は host のメモリファイル全文を返す。ファイルが存在しない場合は空文字列。
func (s *Store) Read(host string) string {
	data, err := os.ReadFile(filepath.Join(s.dir, sanitizeFilename(host)+".md"))
	if err != nil {
		return ""
	}
	return string(data)
}

// formatEntry は Entry を Markdown エントリに変換する。
func formatEntry(e *Entry) string {
	ts := time.Now().Format("15:04:05")
	source := ""
	if e.Source != "" {
		source = fmt.Sprintf("- **ツール**: %s\n", e.Source)
	}

	switch e.Type {
	case EntryVulnerability:
		severity := strings.ToUpper(e.Severity)
		if severity == "" {
			severity = "INFO"
		}
		return fmt.Sprintf("## [%s] %s\n- **時刻**: %s\n%s- **説明**: %s\n\n",
			severity, e.Title, ts, source, e.Description)

	case EntryCredential:
		return fmt.Sprintf("## 🔑 認証情報: %s\n- **時刻**: %s\n%s- **詳細**: %s\n\n",
			e.Title, ts, source, e.Description)

	case EntryArtifact:
		return fmt.Sprintf("## 📄 アーティファクト: %s\n- **時刻**: %s\n%s- **詳細**: %s\n\n",
			e.Title, ts, source, e.Description)

	default: // EntryNote
		return fmt.Sprintf("## 📝 ノート: %s\n- **時刻**: %s\n%s- **内容**: %s\n\n",
			e.Title, ts, source, e.Description)
	}
}

// sanitizeFilename はホスト名をファイル名として安全な形式に変換する。
// IP アドレスとドメイン名はそのまま使用できる。
// セキュリティ: パストラバーサルを防ぐため / と \ を除去する。
func sanitizeFilename(host string) string {
	host = strings.ReplaceAll(host, "/", "_")
	host = strings.ReplaceAll(host, "\\", "_")
	host = strings.ReplaceAll(host, "..", "_")
	if host == "" {
		host = "unknown"
	}
	return host
}

package memory_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0x6d61/strikeforge/internal/memory"
	"github.com/0x6d61/strikeforge/internal/parser"
)

func TestStore_Record_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	s := memory.NewStore(dir)

	err := s.Record("10.0.0.5", &memory.Entry{
		Type:        memory.EntryVulnerability,
		Title:       "CVE-2021-41773",
		Description: "Apache 2.4.49 Path Traversal confirmed",
		Severity:    "critical",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	path := filepath.Join(dir, "10.0.0.5.md")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("File not created: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "CVE-2021-41773") {
		t.Errorf("File should contain CVE title, got:\n%s", content)
	}
	if !strings.Contains(strings.ToLower(content), "critical") {
		t.Errorf("File should contain severity, got:\n%s", content)
	}
}

func TestStore_Record_Appends(t *testing.T) {
	dir := t.TempDir()
	s := memory.NewStore(dir)

	_ = s.Record("10.0.0.5", &memory.Entry{
		Type:  memory.EntryVulnerability,
		Title: "CVE-2021-41773",
	})
	_ = s.Record("10.0.0.5", &memory.Entry{
		Type:  memory.EntryCredential,
		Title: "MySQL: root / empty password",
	})

	content := s.Read("10.0.0.5")

	if !strings.Contains(content, "CVE-2021-41773") {
		t.Error("First entry missing")
	}
	if !strings.Contains(content, "MySQL") {
		t.Error("Second entry missing")
	}
	if strings.Count(content, "# Strikeforge Findings") != 1 {
		t.Error("header must be written once")
	}
}

func TestStore_Record_DomainHost(t *testing.T) {
	dir := t.TempDir()
	s := memory.NewStore(dir)

	err := s.Record("example.com", &memory.Entry{
		Type:  memory.EntryNote,
		Title: "Domain target",
	})
	if err != nil {
		t.Fatalf("Domain host record: %v", err)
	}

	// ファイル名の . はそのまま（ホスト名として有効）
	_, err = os.ReadFile(filepath.Join(dir, "example.com.md"))
	if err != nil {
		t.Fatalf("File not found for domain host: %v", err)
	}
}

func TestStore_Record_PathTraversal(t *testing.T) {
	dir := t.TempDir()
	s := memory.NewStore(dir)

	if err := s.Record("../../etc/passwd", &memory.Entry{Type: memory.EntryNote, Title: "x"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected one file inside dir, got %d", len(entries))
	}
	if strings.Contains(entries[0].Name(), "/") {
		t.Errorf("unsafe file name: %s", entries[0].Name())
	}
}

func TestStore_Read_Missing(t *testing.T) {
	s := memory.NewStore(t.TempDir())
	if got := s.Read("10.9.9.9"); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestFromFinding(t *testing.T) {
	cred := memory.FromFinding(parser.Finding{
		Kind:       parser.KindCredential,
		Tool:       "hydra",
		Line:       "[22][ssh] login: root password: toor",
		Credential: &parser.Credential{Username: "root", Password: "toor", Service: "SSH", Port: 22},
	})
	if cred.Type != memory.EntryCredential || cred.Title != "SSH/22: root / toor" {
		t.Errorf("unexpected credential entry: %+v", cred)
	}
	if cred.Source != "hydra" {
		t.Errorf("source: got %q", cred.Source)
	}

	vuln := memory.FromFinding(parser.Finding{
		Kind: parser.KindVulnerability,
		Vulnerability: &parser.VulnerabilityFinding{
			Type: "sql-injection", Severity: parser.SeverityCritical,
			Description: "SQL injection in parameter 'id'", Recommendation: "Use parameterized queries",
		},
	})
	if vuln.Type != memory.EntryVulnerability || vuln.Severity != "critical" {
		t.Errorf("unexpected vulnerability entry: %+v", vuln)
	}
	if !strings.Contains(vuln.Description, "parameterized") {
		t.Errorf("recommendation missing: %q", vuln.Description)
	}

	path := memory.FromFinding(parser.Finding{Kind: parser.KindPath, Path: "/admin"})
	if path.Type != memory.EntryArtifact || path.Title != "path /admin" {
		t.Errorf("unexpected path entry: %+v", path)
	}
}

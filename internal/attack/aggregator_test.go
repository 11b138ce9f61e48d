package attack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/0x6d61/strikeforge/internal/parser"
	"github.com/0x6d61/strikeforge/internal/tools"
)

func run(state tools.RunState, exit int) *tools.RunRecord {
	now := time.Now()
	return &tools.RunRecord{ToolName: "t", State: state, ExitCode: exit, StartedAt: now, FinishedAt: now}
}

func sessionWith(cat Category, findings ...parser.Finding) *Session {
	s := newSession("sid", AttackVector{Name: "v", Category: cat, Commands: []CommandTemplate{{Tool: "t", Args: "TARGET"}}}, "10.0.0.5", 80)
	for _, f := range findings {
		s.addFinding(f)
	}
	return s
}

var (
	credFinding = parser.Finding{Kind: parser.KindCredential, Credential: &parser.Credential{Username: "root", Password: "toor", Service: "SSH", Port: 22}}
	vulnFinding = parser.Finding{Kind: parser.KindVulnerability, Vulnerability: &parser.VulnerabilityFinding{Type: "sql-injection", Severity: parser.SeverityCritical}}
	pathFinding = parser.Finding{Kind: parser.KindPath, Path: "/admin"}
	svcFinding  = parser.Finding{Kind: parser.KindService, Service: &parser.Service{Port: 22, Protocol: "tcp", Name: "ssh"}}
	noteFinding = parser.Finding{Kind: parser.KindNote, Note: "something"}
)

func TestAggregator_SuccessPolicy(t *testing.T) {
	clean := []*tools.RunRecord{run(tools.RunCompleted, 0)}
	failed := []*tools.RunRecord{run(tools.RunCompleted, 2)}

	tests := []struct {
		name     string
		cat      Category
		findings []parser.Finding
		runs     []*tools.RunRecord
		want     bool
	}{
		{"brute force with credential", CategoryBruteForce, []parser.Finding{credFinding}, clean, true},
		{"brute force without credential", CategoryBruteForce, nil, clean, false},
		{"brute force ignores vulnerabilities", CategoryBruteForce, []parser.Finding{vulnFinding}, clean, false},
		{"dir enum clean exit no paths", CategoryDirEnum, nil, clean, true},
		{"dir enum failed exit with paths", CategoryDirEnum, []parser.Finding{pathFinding}, failed, false},
		{"dir enum timed out", CategoryDirEnum, []parser.Finding{pathFinding}, []*tools.RunRecord{run(tools.RunTimedOut, -1)}, false},
		{"dir enum last command decides", CategoryDirEnum, nil, []*tools.RunRecord{run(tools.RunCompleted, 1), run(tools.RunCompleted, 0)}, true},
		{"dir enum no runs", CategoryDirEnum, nil, nil, false},
		{"exploit with vulnerability", CategoryExploit, []parser.Finding{vulnFinding}, failed, true},
		{"exploit with only notes", CategoryExploit, []parser.Finding{noteFinding}, clean, false},
		{"web scan with vulnerability", CategoryWebVulnScan, []parser.Finding{vulnFinding}, clean, true},
		{"web scan with only paths", CategoryWebVulnScan, []parser.Finding{pathFinding}, clean, false},
		{"recon with service", CategoryNetworkRecon, []parser.Finding{svcFinding}, clean, true},
		{"recon with vulnerability", CategoryNetworkRecon, []parser.Finding{vulnFinding}, clean, true},
		{"recon with nothing", CategoryNetworkRecon, nil, clean, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessionWith(tt.cat, tt.findings...)
			r := Aggregator{}.Finalize(s, StatusCompleted, nil, tt.runs, time.Now())
			assert.Equal(t, tt.want, r.Success)
		})
	}
}

func TestAggregator_Ambiguous(t *testing.T) {
	clean := []*tools.RunRecord{run(tools.RunCompleted, 0)}

	r := Aggregator{}.Finalize(sessionWith(CategoryExploit, noteFinding), StatusCompleted, nil, clean, time.Now())
	assert.True(t, r.Ambiguous)
	assert.Equal(t, parser.SeverityLow, r.Severity)

	r = Aggregator{}.Finalize(sessionWith(CategoryExploit, vulnFinding), StatusCompleted, nil, clean, time.Now())
	assert.False(t, r.Ambiguous)

	// 非ゼロ終了は失敗の印なので曖昧ではない
	r = Aggregator{}.Finalize(sessionWith(CategoryExploit), StatusCompleted, nil, []*tools.RunRecord{run(tools.RunCompleted, 1)}, time.Now())
	assert.False(t, r.Ambiguous)

	r = Aggregator{}.Finalize(sessionWith(CategoryDirEnum), StatusCompleted, nil, clean, time.Now())
	assert.False(t, r.Ambiguous)

	r = Aggregator{}.Finalize(sessionWith(CategoryExploit), StatusStopped, ErrCancelled, clean, time.Now())
	assert.False(t, r.Ambiguous)
	assert.Equal(t, "cancelled", r.Error)
}

func TestAggregator_CollectsFindingsAndEntities(t *testing.T) {
	s := sessionWith(CategoryNetworkRecon, svcFinding, vulnFinding, pathFinding, credFinding)
	s.appendLine("22/tcp open ssh")
	rec := run(tools.RunCompleted, 0)
	rec.Entities = []tools.Entity{{Type: tools.EntityPort, Value: "22/tcp"}, {Type: tools.EntityCVE, Value: "CVE-2014-0160"}}
	rec2 := run(tools.RunCompleted, 0)
	rec2.Entities = []tools.Entity{{Type: tools.EntityPort, Value: "22/tcp"}}

	end := time.Now()
	r := Aggregator{}.Finalize(s, StatusCompleted, nil, []*tools.RunRecord{rec, rec2}, end)

	assert.Equal(t, "sid", r.SessionID)
	assert.Equal(t, end, r.EndedAt)
	assert.Equal(t, []string{"22/tcp open ssh"}, r.Output)
	assert.Len(t, r.Services, 1)
	assert.Len(t, r.Vulnerabilities, 1)
	assert.Len(t, r.Credentials, 1)
	assert.Equal(t, []string{"/admin"}, r.Paths)
	assert.Len(t, r.Entities, 2)
	assert.Len(t, r.Runs, 2)
	assert.Equal(t, parser.SeverityCritical, r.Severity)
}

func TestAggregator_NothingFoundIsInfo(t *testing.T) {
	r := Aggregator{}.Finalize(sessionWith(CategoryBruteForce), StatusCompleted, nil, nil, time.Now())
	assert.Equal(t, parser.SeverityInfo, r.Severity)
	assert.False(t, r.Success)
}

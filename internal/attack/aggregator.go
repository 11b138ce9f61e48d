package attack

import (
	"time"

	"github.com/0x6d61/strikeforge/internal/parser"
	"github.com/0x6d61/strikeforge/internal/tools"
)

// AttackResult はセッション終了時に1回だけ作られる不変のスナップショット。
type AttackResult struct {
	SessionID string
	Vector    string
	Category  Category
	Target    string
	Port      int
	StartedAt time.Time
	EndedAt   time.Time
	Status    Status
	Success   bool
	// Ambiguous はツールが正常終了したのに成否を示す発見物が何もなかったこと。
	// 人がレビューできるよう Output は常に全行を持つ。
	Ambiguous bool
	Severity  parser.Severity
	Error     string

	Output          []string
	Credentials     []parser.Credential
	Vulnerabilities []parser.VulnerabilityFinding
	Paths           []string
	Services        []parser.Service
	Notes           []string
	Entities        []tools.Entity
	Runs            []RunSummary
}

// RunSummary は1コマンド分の実行結果。
type RunSummary struct {
	Tool     string
	Args     []string
	State    tools.RunState
	ExitCode int
	Lines    int
	Duration time.Duration
}

// Aggregator はセッションの出力と発見物から AttackResult を組み立てる。
type Aggregator struct{}

// Finalize は終端状態のセッションから結果を作る。
// runs は実行順の記録、endedAt は終端状態に入った時刻。
func (Aggregator) Finalize(s *Session, status Status, err error, runs []*tools.RunRecord, endedAt time.Time) *AttackResult {
	r := &AttackResult{
		SessionID: s.ID,
		Vector:    s.Vector.Name,
		Category:  s.Vector.Category,
		Target:    s.Target,
		Port:      s.Port,
		StartedAt: s.CreatedAt,
		EndedAt:   endedAt,
		Status:    status,
		Severity:  parser.SeverityInfo,
	}
	if err != nil {
		r.Error = err.Error()
	}

	for _, l := range s.Output() {
		r.Output = append(r.Output, l.Content)
	}

	for _, f := range s.typedFindings() {
		switch f.Kind {
		case parser.KindCredential:
			r.Credentials = append(r.Credentials, *f.Credential)
		case parser.KindVulnerability:
			r.Vulnerabilities = append(r.Vulnerabilities, *f.Vulnerability)
		case parser.KindPath:
			r.Paths = append(r.Paths, f.Path)
		case parser.KindService:
			r.Services = append(r.Services, *f.Service)
		case parser.KindNote:
			r.Notes = append(r.Notes, f.Note)
		}
		r.Severity = parser.Worst(r.Severity, f.Severity())
	}

	seen := make(map[string]bool)
	for _, run := range runs {
		r.Runs = append(r.Runs, RunSummary{
			Tool:     run.ToolName,
			Args:     run.Args,
			State:    run.State,
			ExitCode: run.ExitCode,
			Lines:    len(run.Lines),
			Duration: run.FinishedAt.Sub(run.StartedAt),
		})
		for _, e := range run.Entities {
			key := string(e.Type) + ":" + e.Value
			if !seen[key] {
				seen[key] = true
				r.Entities = append(r.Entities, e)
			}
		}
	}

	r.Success = success(r, runs)
	r.Ambiguous = ambiguous(r, runs)
	return r
}

// success はカテゴリごとの成功判定。
// 「何も見つからなかった」と「ツールが失敗した」は区別する。
func success(r *AttackResult, runs []*tools.RunRecord) bool {
	switch r.Category {
	case CategoryBruteForce:
		return len(r.Credentials) > 0
	case CategoryDirEnum:
		// 見つかったパスの数には依存しない
		return len(runs) > 0 && runs[len(runs)-1].CleanExit()
	case CategoryExploit, CategoryWebVulnScan:
		return len(r.Vulnerabilities) > 0
	case CategoryNetworkRecon:
		return len(r.Services) > 0 || len(r.Vulnerabilities) > 0
	}
	return false
}

// ambiguous は全コマンドが正常終了したのに型付きの発見物がない状態。
// ディレクトリ列挙は正常終了そのものが成否の印なので対象外。
func ambiguous(r *AttackResult, runs []*tools.RunRecord) bool {
	if r.Category == CategoryDirEnum || r.Status != StatusCompleted || len(runs) == 0 {
		return false
	}
	for _, run := range runs {
		if !run.CleanExit() {
			return false
		}
	}
	return len(r.Credentials) == 0 && len(r.Vulnerabilities) == 0 &&
		len(r.Paths) == 0 && len(r.Services) == 0
}

// Package parser turns raw security tool output into typed findings.
//
// Each supported tool has its own Parser fed one line at a time. Lines are
// classified independently; a parser only accumulates its findings and the
// worst severity seen so far.
package parser

import (
	"fmt"
	"strings"
)

// Kind は発見物の種別。
type Kind string

const (
	KindCredential    Kind = "credential"
	KindVulnerability Kind = "vulnerability"
	KindPath          Kind = "path"
	KindService       Kind = "service"
	KindNote          Kind = "note" // 専用パーサーのないツールの低確度な発見
)

// Credential は発見された認証情報。
type Credential struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Service  string `json:"service" yaml:"service"`
	Port     int    `json:"port" yaml:"port"`
}

// VulnerabilityFinding は発見された脆弱性。
type VulnerabilityFinding struct {
	Type           string   `json:"type" yaml:"type"`
	Severity       Severity `json:"severity" yaml:"severity"`
	Description    string   `json:"description" yaml:"description"`
	Proof          string   `json:"proof" yaml:"proof"`
	Recommendation string   `json:"recommendation" yaml:"recommendation"`
}

// Service はポートスキャンで見つかった公開サービス。
type Service struct {
	Port     int    `json:"port" yaml:"port"`
	Protocol string `json:"protocol" yaml:"protocol"`
	Name     string `json:"name" yaml:"name"`
	Banner   string `json:"banner,omitempty" yaml:"banner,omitempty"`
}

// Finding は1行から抽出された構造化データ。Kind に対応するフィールドだけが埋まる。
type Finding struct {
	Kind Kind
	Tool string
	Line string // 抽出元の生の行

	Credential    *Credential
	Vulnerability *VulnerabilityFinding
	Path          string
	Service       *Service
	Note          string
}

// Severity は発見物の深刻度を返す。
func (f Finding) Severity() Severity {
	switch f.Kind {
	case KindCredential:
		return SeverityCritical
	case KindVulnerability:
		if f.Vulnerability != nil {
			return f.Vulnerability.Severity
		}
	case KindService, KindPath:
		return SeverityInfo
	}
	return SeverityLow
}

// Summary はセッションの findings 一覧に載せる1行の説明。
func (f Finding) Summary() string {
	switch f.Kind {
	case KindCredential:
		c := f.Credential
		return fmt.Sprintf("credential %s:%s (%s/%d)", c.Username, c.Password, c.Service, c.Port)
	case KindVulnerability:
		v := f.Vulnerability
		return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(v.Severity)), v.Type, v.Description)
	case KindPath:
		return "path " + f.Path
	case KindService:
		s := f.Service
		out := fmt.Sprintf("service %d/%s %s", s.Port, s.Protocol, s.Name)
		if s.Banner != "" {
			out += " (" + s.Banner + ")"
		}
		return out
	default:
		return "note " + f.Note
	}
}

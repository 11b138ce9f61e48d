// Package attack runs attack vectors against targets as independent,
// cancellable sessions and folds their output into results.
package attack

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/0x6d61/strikeforge/internal/tools"
)

// Category は攻撃ベクターの分類。成功判定の方針がこれで決まる。
type Category string

const (
	CategoryBruteForce   Category = "brute-force"
	CategoryDirEnum      Category = "directory-enumeration"
	CategoryExploit      Category = "vulnerability-exploit"
	CategoryNetworkRecon Category = "network-recon"
	CategoryWebVulnScan  Category = "web-vuln-scan"
)

// Categories は既知のカテゴリ一覧。
var Categories = []Category{
	CategoryBruteForce,
	CategoryDirEnum,
	CategoryExploit,
	CategoryNetworkRecon,
	CategoryWebVulnScan,
}

// Valid は既知のカテゴリかどうか。
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// CommandTemplate はベクター内の1コマンド。
// Args の TARGET / PORT は実行時に置換される。
// 優先ツールが見つからないときは Fallback を順にたどる。
type CommandTemplate struct {
	Tool     string           `yaml:"tool"`
	Args     string           `yaml:"args"`
	Timeout  time.Duration    `yaml:"timeout"`
	Fallback *CommandTemplate `yaml:"fallback,omitempty"`
}

// Candidates は優先順のツール名を返す。
func (t CommandTemplate) Candidates() []string {
	var names []string
	for c := &t; c != nil; c = c.Fallback {
		names = append(names, c.Tool)
	}
	return names
}

// forTool は tool を担当するテンプレートを返す。
func (t *CommandTemplate) forTool(tool string) *CommandTemplate {
	for c := t; c != nil; c = c.Fallback {
		if c.Tool == tool {
			return c
		}
	}
	return nil
}

// AttackVector は攻撃手順の不変な定義。設定時に作られ、以後変更されない。
type AttackVector struct {
	Name          string            `yaml:"name"`
	Category      Category          `yaml:"category"`
	Description   string            `yaml:"description"`
	RequiredTools []string          `yaml:"required_tools"`
	Commands      []CommandTemplate `yaml:"commands"`
}

// Validate はベクター定義を検査する。bl が nil でなければ危険なコマンドも拒否する。
func (v *AttackVector) Validate(bl *tools.Blacklist) error {
	var errs []error
	if strings.TrimSpace(v.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !v.Category.Valid() {
		errs = append(errs, fmt.Errorf("unknown category %q", v.Category))
	}
	if len(v.Commands) == 0 {
		errs = append(errs, errors.New("at least one command is required"))
	}
	for i, cmd := range v.Commands {
		for c := &cmd; c != nil; c = c.Fallback {
			if c.Tool == "" {
				errs = append(errs, fmt.Errorf("command %d: tool is required", i))
				continue
			}
			if strings.ContainsAny(c.Tool, `/\`) {
				errs = append(errs, fmt.Errorf("command %d: tool %q must be a bare name", i, c.Tool))
			}
			if !tools.HasPlaceholders(c.Args) {
				errs = append(errs, fmt.Errorf("command %d (%s): args must reference %s or %s", i, c.Tool, tools.TokenTarget, tools.TokenPort))
			}
			line := c.Tool + " " + c.Args
			if pattern, hit := bl.Matching(line); hit {
				errs = append(errs, fmt.Errorf("command %d (%s): blocked by blacklist pattern %q", i, c.Tool, pattern))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("vector %q: %w", v.Name, errors.Join(errs...))
	}
	return nil
}

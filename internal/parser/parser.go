package parser

import "strings"

// Parser はツール1回分の出力を1行ずつ受け取り、発見物を逐次抽出する。
//
// 行は互いに独立に分類される。行をまたいで持つ状態は
// 発見物の蓄積と最悪深刻度だけ。ゴルーチンセーフではない（1実行1インスタンス）。
type Parser interface {
	// Consume は1行を分類し、その行から新たに得られた発見物を返す。
	Consume(line string) []Finding
	// Finalize は全体の深刻度を返す。何も見つかっていなければ SeverityInfo。
	Finalize() Severity
	// Findings はこれまでの全発見物を出現順で返す。
	Findings() []Finding
}

// Context はパーサー生成時に渡す実行情報。
type Context struct {
	Tool   string
	Target string
	Port   int
}

// Factory は Context から新しい Parser を作る。
type Factory func(Context) Parser

// lineRule は1行を発見物に変換するルール。マッチしなければ nil を返す。
type lineRule func(ctx Context, line string) []Finding

// ruleParser は lineRule を使う Parser の共通実装。
type ruleParser struct {
	ctx      Context
	rule     lineRule
	findings []Finding
	worst    Severity
	dedupe   map[string]bool
}

func newRuleParser(ctx Context, rule lineRule) *ruleParser {
	return &ruleParser{ctx: ctx, rule: rule, worst: SeverityInfo, dedupe: make(map[string]bool)}
}

func (p *ruleParser) Consume(line string) []Finding {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	var out []Finding
	for _, f := range p.rule(p.ctx, line) {
		key := dedupeKey(f)
		if key != "" {
			if p.dedupe[key] {
				continue
			}
			p.dedupe[key] = true
		}
		f.Tool = p.ctx.Tool
		if f.Line == "" {
			f.Line = line
		}
		p.worst = Worst(p.worst, f.Severity())
		p.findings = append(p.findings, f)
		out = append(out, f)
	}
	return out
}

func (p *ruleParser) Finalize() Severity { return p.worst }

func (p *ruleParser) Findings() []Finding {
	out := make([]Finding, len(p.findings))
	copy(out, p.findings)
	return out
}

// dedupeKey は重複排除のキー。空なら重複排除しない。
// 同じパスや同じ認証情報を複数行で報告するツールがある。
func dedupeKey(f Finding) string {
	switch f.Kind {
	case KindPath:
		return "path:" + f.Path
	case KindCredential:
		c := f.Credential
		return "cred:" + c.Service + ":" + c.Username + ":" + c.Password
	case KindService:
		s := f.Service
		return "svc:" + s.Protocol + ":" + itoa(s.Port)
	}
	return ""
}

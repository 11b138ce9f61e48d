package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/0x6d61/strikeforge/internal/attack"
	"github.com/0x6d61/strikeforge/internal/tools"
)

// sessionStarter は console が使うセッション操作。*attack.Manager が満たす。
type sessionStarter interface {
	Start(ctx context.Context, v attack.AttackVector, target string, port int) (string, error)
	Wait(ctx context.Context, id string) (*attack.AttackResult, error)
}

// console は -tui なしのときの逐次表示。
type console struct {
	out   io.Writer
	quiet bool
	multi bool // 複数セッションなら行頭にベクター名を付ける
}

func newConsole(out io.Writer, quiet bool) *console {
	return &console{out: out, quiet: quiet}
}

// run は vectors を同じターゲットに並行実行し、全セッションの終了を待つ。
// 全セッションが成功なら 0、それ以外は 1 を返す。
func (c *console) run(ctx context.Context, mgr sessionStarter, events <-chan attack.Event, vectors []attack.AttackVector, target string, port int) int {
	c.multi = len(vectors) > 1

	results := make(chan *attack.AttackResult, len(vectors))
	pending := 0
	for _, v := range vectors {
		id, err := mgr.Start(ctx, v, target, port)
		if err != nil {
			c.printStartError(v.Name, err)
		}
		if id == "" {
			continue
		}
		pending++
		go func(id string) {
			r, _ := mgr.Wait(context.Background(), id)
			results <- r
		}(id)
	}

	exit := 0
	if pending < len(vectors) {
		exit = 1
	}
	for pending > 0 {
		select {
		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.printEvent(e)
		case r := <-results:
			pending--
			// 終了前に送られたイベントはバッファに残っているので先に出す
			c.drain(events)
			if r == nil {
				exit = 1
				continue
			}
			c.printResult(r)
			if !r.Success {
				exit = 1
			}
		}
	}
	return exit
}

func (c *console) drain(events <-chan attack.Event) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			c.printEvent(e)
		default:
			return
		}
	}
}

func (c *console) prefix(vector string) string {
	if c.multi {
		return "[" + vector + "] "
	}
	return ""
}

func (c *console) printEvent(e attack.Event) {
	switch e.Type {
	case attack.EventLine:
		if !c.quiet {
			fmt.Fprintf(c.out, "%s%s\n", c.prefix(e.Vector), e.Line)
		}
	case attack.EventCredential, attack.EventVulnerability, attack.EventPath, attack.EventService:
		if e.Finding != nil {
			fmt.Fprintf(c.out, "%s★ %s\n", c.prefix(e.Vector), e.Finding.Summary())
		}
	}
}

func (c *console) printStartError(vector string, err error) {
	fmt.Fprintf(c.out, "%s✘ %v\n", c.prefix(vector), err)
	var aerr *attack.Error
	if errors.As(err, &aerr) && aerr.Hint != "" {
		fmt.Fprintf(c.out, "%s  hint: %s\n", c.prefix(vector), aerr.Hint)
	}
}

// printResult は1セッションの結果サマリーを出す。
func (c *console) printResult(r *attack.AttackResult) {
	verdict := "FAILURE"
	switch {
	case r.Success:
		verdict = "SUCCESS"
	case r.Ambiguous:
		verdict = "AMBIGUOUS"
	}
	fmt.Fprintf(c.out, "── %s → %s:%d  %s  %s  severity=%s  %s\n",
		r.Vector, r.Target, r.Port, r.Status, verdict, r.Severity, r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond))

	for _, cr := range r.Credentials {
		fmt.Fprintf(c.out, "   credential %s / %s (%s/%d)\n", cr.Username, cr.Password, cr.Service, cr.Port)
	}
	for _, v := range r.Vulnerabilities {
		fmt.Fprintf(c.out, "   [%s] %s: %s\n", strings.ToUpper(v.Severity.String()), v.Type, v.Description)
	}
	for _, s := range r.Services {
		fmt.Fprintf(c.out, "   service %d/%s %s %s\n", s.Port, s.Protocol, s.Name, s.Banner)
	}
	for _, p := range r.Paths {
		fmt.Fprintf(c.out, "   path %s\n", p)
	}
	if r.Error != "" {
		fmt.Fprintf(c.out, "   error: %s\n", r.Error)
	}
	if c.quiet && len(r.Output) > 0 {
		fmt.Fprintln(c.out, tools.Truncate(r.Output, tools.DefaultPreviewConfig))
	}
}

// printToolStatus は登録済みツールの解決状況を表示する。
func printToolStatus(out io.Writer, resolver *tools.Resolver) {
	status := resolver.Refresh()
	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tSTATUS\tPATH / INSTALL")
	for _, name := range names {
		detail := resolver.Path(name)
		if detail == "" {
			detail = resolver.Registry().InstallHint(name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, status[name], detail)
	}
	w.Flush()
}

// vectorAvailability はツールの有無を調べる。*tools.Resolver が満たす。
type vectorAvailability interface {
	Available(name string) bool
}

// printVectors はカタログのベクターとツールの有無を表示する。
func printVectors(out io.Writer, catalog *attack.Catalog, resolver vectorAvailability) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VECTOR\tCATEGORY\tTOOLS\tDESCRIPTION")
	for _, v := range catalog.All() {
		var chain []string
		for _, cmd := range v.Commands {
			var alts []string
			for _, tool := range cmd.Candidates() {
				mark := "✘"
				if resolver.Available(tool) {
					mark = "✔"
				}
				alts = append(alts, mark+tool)
			}
			chain = append(chain, strings.Join(alts, "|"))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Name, v.Category, strings.Join(chain, " → "), v.Description)
	}
	w.Flush()
}

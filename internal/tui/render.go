package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/0x6d61/strikeforge/internal/attack"
	"github.com/0x6d61/strikeforge/internal/tools"
)

// statusIcon はセッション状態のアイコン。実行中はスピナーの現在フレームを使う。
func statusIcon(s attack.Status, frame string) string {
	switch s {
	case attack.StatusRunning:
		if frame == "" {
			frame = "●"
		}
		return statusRunningStyle.Render(frame)
	case attack.StatusCompleted:
		return statusCompletedStyle.Render("✔")
	case attack.StatusStopped:
		return statusStoppedStyle.Render("■")
	case attack.StatusFailed:
		return statusFailedStyle.Render("✘")
	}
	return string(s)
}

// renderSessionHeader はセッションの見出しと進捗行をレンダリングする。
// Format:
//
//	═══ ssh-brute-force → 10.0.0.5:22 [running] ═══
//	<frame> hydra  1/2 commands  3 findings
func renderSessionHeader(s *attack.Session, frame string) string {
	status := s.Status()
	header := lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		Render(fmt.Sprintf("═══ %s → %s:%d [%s] ═══", s.Vector.Name, s.Target, s.Port, status))

	done, total := s.Progress()
	progress := fmt.Sprintf("%d/%d commands  %d findings", done, total, len(s.Findings()))
	if status == attack.StatusRunning {
		if tool := s.CurrentTool(); tool != "" {
			progress = tool + "  " + progress
		}
		progress = frame + " " + progress
	} else {
		progress = statusIcon(status, "") + " " + progress
	}
	return header + "\n" + timestampStyle.Render(progress) + "\n"
}

// renderOutput はセッションログを1行ずつ色分けして width に収める。
func renderOutput(lines []tools.OutputLine, width int) string {
	var sb strings.Builder
	for _, l := range lines {
		ts := timestampStyle.Render(l.Time.Format("15:04:05"))
		// タイムスタンプ 8 + 空白 2
		body := fitWidth(l.Content, width-10)
		sb.WriteString(ts + "  " + styleLine(l.Content).Render(body) + "\n")
	}
	return sb.String()
}

// styleLine は行の種類（コマンド見出し・エラー・終了マーカー・出力）でスタイルを選ぶ。
func styleLine(line string) lipgloss.Style {
	switch {
	case strings.HasPrefix(line, "$ "):
		return commandLineStyle
	case strings.HasPrefix(line, "[error]"):
		return errorLineStyle
	case strings.HasPrefix(line, "[exit]"), strings.HasPrefix(line, "[cancelled]"), strings.HasPrefix(line, "[info]"):
		return markerLineStyle
	}
	return outputLineStyle
}

// fitWidth は表示幅が width を超える行を「…」付きで切り詰める。
func fitWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// resultMarkdown は AttackResult を Markdown のサマリーにする。
func resultMarkdown(r *attack.AttackResult) string {
	var sb strings.Builder

	verdict := "FAILURE"
	switch {
	case r.Success:
		verdict = "SUCCESS"
	case r.Ambiguous:
		verdict = "AMBIGUOUS"
	}
	fmt.Fprintf(&sb, "## %s: %s\n\n", verdict, r.Vector)
	fmt.Fprintf(&sb, "- **Target**: `%s:%d`\n", r.Target, r.Port)
	fmt.Fprintf(&sb, "- **Status**: %s\n", r.Status)
	fmt.Fprintf(&sb, "- **Severity**: %s\n", strings.ToUpper(r.Severity.String()))
	fmt.Fprintf(&sb, "- **Duration**: %s\n", formatDuration(r.EndedAt.Sub(r.StartedAt)))
	if r.Error != "" {
		fmt.Fprintf(&sb, "- **Error**: %s\n", r.Error)
	}
	if r.Ambiguous {
		sb.WriteString("- 成否を判定できる出力がありません。生出力を確認してください。\n")
	}

	if len(r.Credentials) > 0 {
		sb.WriteString("\n### Credentials\n\n")
		for _, c := range r.Credentials {
			fmt.Fprintf(&sb, "- `%s` / `%s` (%s/%d)\n", c.Username, c.Password, c.Service, c.Port)
		}
	}
	if len(r.Vulnerabilities) > 0 {
		sb.WriteString("\n### Vulnerabilities\n\n")
		for _, v := range r.Vulnerabilities {
			fmt.Fprintf(&sb, "- **%s** %s: %s\n", strings.ToUpper(v.Severity.String()), v.Type, v.Description)
		}
	}
	if len(r.Services) > 0 {
		sb.WriteString("\n### Services\n\n")
		for _, s := range r.Services {
			fmt.Fprintf(&sb, "- %d/%s %s %s\n", s.Port, s.Protocol, s.Name, s.Banner)
		}
	}
	if len(r.Paths) > 0 {
		sb.WriteString("\n### Paths\n\n")
		for _, p := range r.Paths {
			fmt.Fprintf(&sb, "- `%s`\n", p)
		}
	}

	if len(r.Runs) > 0 {
		sb.WriteString("\n### Commands\n\n")
		for _, run := range r.Runs {
			fmt.Fprintf(&sb, "- `%s %s` %s (exit %d, %d lines, %s)\n",
				run.Tool, strings.Join(run.Args, " "), run.State, run.ExitCode, run.Lines, formatDuration(run.Duration))
		}
	}

	if preview := tools.Truncate(r.Output, tools.DefaultPreviewConfig); preview != "" {
		sb.WriteString("\n### Output\n\n```\n")
		sb.WriteString(preview)
		sb.WriteString("\n```\n")
	}
	return sb.String()
}

// renderMarkdown は glamour を使って Markdown をターミナル用にレンダリングする。
// ダークスタイルを明示指定（WithAutoStyle() は非 TTY 環境で plain にフォールバックする）。
// glamour の dark スタイルは左右マージンを追加するため、width を縮小して渡す。
func renderMarkdown(text string, width int) (string, error) {
	wrapWidth := width - 4
	if wrapWidth < 20 {
		wrapWidth = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return "", err
	}
	return r.Render(text)
}

// formatDuration formats a duration for display.
// < 1s: "0.Xs", < 60s: "Xs", >= 60s: "Xm Ys"
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// RunState は1回の実行の状態。
//
//	starting → running → {completed | timed-out | cancelled}
//	starting → launch-failed
type RunState string

const (
	RunStarting     RunState = "starting"
	RunRunning      RunState = "running"
	RunCompleted    RunState = "completed"
	RunTimedOut     RunState = "timed-out"
	RunCancelled    RunState = "cancelled"
	RunLaunchFailed RunState = "launch-failed"
)

// Terminal は終了状態かどうか。
func (s RunState) Terminal() bool {
	switch s {
	case RunCompleted, RunTimedOut, RunCancelled, RunLaunchFailed:
		return true
	}
	return false
}

// DefaultPollInterval はキャンセル・終了検知後に残り出力を待つ上限。
const DefaultPollInterval = 50 * time.Millisecond

// DefaultTimeout はタイムアウト未指定時の上限。
const DefaultTimeout = 300 * time.Second

const readChunkSize = 4096

// Spec は1回の実行内容。
type Spec struct {
	Path       string
	Args       []string
	Timeout    time.Duration // 0 なら DefaultTimeout
	SearchPath string        // 子プロセスの PATH（空なら継承）
	Env        []string      // 追加の KEY=VALUE
	Dir        string
}

// Outcome は実行結果のまとめ。
type Outcome struct {
	State      RunState
	ExitCode   int
	Lines      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner は外部コマンドを起動し、合流した stdout/stderr を行単位でストリームする。
//
// 読み取りゴルーチンとタイムアウト監視（タイマー）が並行に動き、
// ctx のキャンセルとタイムアウトはどちらもプロセスグループの強制終了に至る。
// 違いは報告する状態（cancelled / timed-out）だけ。
type Runner struct {
	PollInterval time.Duration
}

// NewRunner は既定値の Runner を返す。
func NewRunner() *Runner {
	return &Runner{PollInterval: DefaultPollInterval}
}

// Run は spec を実行し、完成した行ごとに onLine を呼ぶ。
// onLine は Run を呼んだゴルーチン上で、出力順に呼ばれる。
//
// 非ゼロ終了コードはエラーではない（Outcome.ExitCode で返す）。
// エラーになるのは起動失敗（launch-failed）だけ。
func (r *Runner) Run(ctx context.Context, spec Spec, onLine func(string)) (Outcome, error) {
	out := Outcome{State: RunStarting, StartedAt: time.Now()}
	poll := r.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if err := ctx.Err(); err != nil {
		out.State = RunCancelled
		out.ExitCode = -1
		out.FinishedAt = time.Now()
		return out, nil
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return launchFailed(out, fmt.Errorf("create pipe: %w", err))
	}

	// セキュリティ根拠:
	//   spec.Path は Resolver で解決済みの絶対パス。
	//   exec.Command はシェルを経由しないため Args のシェルインジェクションも起きない。
	cmd := exec.Command(spec.Path, spec.Args...) // nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.Dir = spec.Dir
	cmd.Env = buildEnv(spec)
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return launchFailed(out, fmt.Errorf("launch %s: %w", spec.Path, err))
	}
	// 親側の書き込み端を閉じないと EOF が来ない
	pw.Close()
	out.State = RunRunning

	chunks := make(chan []byte, 64)
	go func() {
		defer close(chunks)
		buf := make([]byte, readChunkSize)
		for {
			n, err := pr.Read(buf)
			if n > 0 {
				c := make([]byte, n)
				copy(c, buf[:n])
				chunks <- c
			}
			if err != nil {
				return
			}
		}
	}()

	exited := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(exited)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	splitter := NewLineSplitter(func(line string) {
		out.Lines++
		onLine(line)
	})

	var (
		terminal RunState
		idle     *time.Timer
		grace    <-chan time.Time
		procDone = exited
	)
	defer func() {
		if idle != nil {
			idle.Stop()
		}
	}()

loop:
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				break loop
			}
			splitter.Write(c)
			if idle != nil {
				idle.Reset(poll)
			}
		case <-procDone:
			// 終了後は読み取りが poll 1回分途切れるまで待つ。
			// 孫プロセスがパイプを握ったまま黙っていてもここで打ち切れる。
			procDone = nil
			idle = time.NewTimer(poll)
			grace = idle.C
		case <-grace:
			if len(chunks) > 0 {
				idle.Reset(poll)
				continue
			}
			pr.Close()
			grace = nil
		case <-ctx.Done():
			terminal = RunCancelled
			break loop
		case <-timer.C:
			terminal = RunTimedOut
			break loop
		}
	}

	// 出力は閉じたがプロセスがまだ生きている場合も、キャンセルとタイムアウトは効かせる
	if terminal == "" {
		select {
		case <-exited:
		default:
			select {
			case <-exited:
			case <-ctx.Done():
				terminal = RunCancelled
			case <-timer.C:
				terminal = RunTimedOut
			}
		}
	}
	if terminal != "" {
		killProcess(cmd)
		pr.Close()
	}
	// 読み取りゴルーチンが受け取り済みのチャンクを取りこぼさない
	for c := range chunks {
		splitter.Write(c)
	}
	splitter.Flush()
	pr.Close()
	<-exited

	out.FinishedAt = time.Now()
	if terminal != "" {
		out.State = terminal
		out.ExitCode = -1
		return out, nil
	}

	out.State = RunCompleted
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		} else {
			out.ExitCode = -1
		}
	}
	return out, nil
}

func launchFailed(out Outcome, err error) (Outcome, error) {
	out.State = RunLaunchFailed
	out.ExitCode = -1
	out.FinishedAt = time.Now()
	return out, err
}

// buildEnv は親の環境変数を引き継ぎ、PATH を差し替えて追加分を足す。
func buildEnv(spec Spec) []string {
	env := os.Environ()
	if spec.SearchPath != "" {
		filtered := env[:0:0]
		for _, kv := range env {
			if strings.HasPrefix(kv, "PATH=") {
				continue
			}
			filtered = append(filtered, kv)
		}
		env = append(filtered, "PATH="+spec.SearchPath)
	}
	return append(env, spec.Env...)
}

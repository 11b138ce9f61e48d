//go:build !windows

package tools_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0x6d61/strikeforge/internal/tools"
)

// sh は /bin/sh -c script を実行する Spec を返す。
func sh(script string, timeout time.Duration) tools.Spec {
	return tools.Spec{Path: "/bin/sh", Args: []string{"-c", script}, Timeout: timeout}
}

// collect は Run を実行して受け取った行を返す。
func collect(t *testing.T, ctx context.Context, spec tools.Spec) ([]string, tools.Outcome, error) {
	t.Helper()
	var lines []string
	out, err := tools.NewRunner().Run(ctx, spec, func(l string) { lines = append(lines, l) })
	return lines, out, err
}

func TestRunner_Run_StreamsLinesAndFlushesPartial(t *testing.T) {
	lines, out, err := collect(t, context.Background(), sh(`printf 'a\nb\nc'`, 5*time.Second))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertStringSliceEqual(t, lines, []string{"a", "b", "c"})
	if out.State != tools.RunCompleted || out.ExitCode != 0 {
		t.Errorf("outcome: %+v", out)
	}
	if out.Lines != 3 {
		t.Errorf("Lines: got %d, want 3", out.Lines)
	}
}

func TestRunner_Run_MergesStderrInOrder(t *testing.T) {
	lines, _, err := collect(t, context.Background(), sh(`echo out1; echo err1 1>&2; echo out2`, 5*time.Second))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertStringSliceEqual(t, lines, []string{"out1", "err1", "out2"})
}

func TestRunner_Run_PartialLineAcrossReads(t *testing.T) {
	lines, _, err := collect(t, context.Background(), sh(`printf 'par'; sleep 0.2; printf 'tial\nnext'`, 5*time.Second))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertStringSliceEqual(t, lines, []string{"partial", "next"})
}

func TestRunner_Run_NoLineLostOnLargeOutput(t *testing.T) {
	script := `i=1; while [ $i -le 3000 ]; do echo "line-$i"; i=$((i+1)); done`
	lines, out, err := collect(t, context.Background(), sh(script, 30*time.Second))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(lines) != 3000 || out.Lines != 3000 {
		t.Fatalf("lines: got %d (outcome %d), want 3000", len(lines), out.Lines)
	}
	for i, l := range lines {
		if want := fmt.Sprintf("line-%d", i+1); l != want {
			t.Fatalf("line %d: got %q, want %q", i, l, want)
		}
	}
}

func TestRunner_Run_SlowConsumerReceivesEveryLine(t *testing.T) {
	// パイプとチャンクバッファを合わせた容量を超える出力
	const total = 100000
	var lines []string
	out, err := tools.NewRunner().Run(context.Background(), sh(fmt.Sprintf("seq 1 %d", total), 60*time.Second), func(l string) {
		lines = append(lines, l)
		if len(lines)%50 == 0 {
			time.Sleep(time.Millisecond)
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != tools.RunCompleted || out.ExitCode != 0 {
		t.Fatalf("outcome: got %s/%d, want completed/0", out.State, out.ExitCode)
	}
	if len(lines) != total || out.Lines != total {
		t.Fatalf("lines: got %d (outcome %d), want %d", len(lines), out.Lines, total)
	}
	if lines[total-1] != fmt.Sprint(total) {
		t.Errorf("last line: got %q, want %q", lines[total-1], fmt.Sprint(total))
	}
}

func TestRunner_Run_NonZeroExitIsNotError(t *testing.T) {
	_, out, err := collect(t, context.Background(), sh(`echo x; exit 3`, 5*time.Second))
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if out.State != tools.RunCompleted || out.ExitCode != 3 {
		t.Errorf("outcome: got %s/%d, want completed/3", out.State, out.ExitCode)
	}
}

func TestRunner_Run_TimeoutKeepsPartialOutput(t *testing.T) {
	start := time.Now()
	lines, out, err := collect(t, context.Background(), sh(`echo started; sleep 30`, 300*time.Millisecond))
	if err != nil {
		t.Fatalf("timeout is not an error: %v", err)
	}
	if out.State != tools.RunTimedOut {
		t.Errorf("State: got %s, want timed-out", out.State)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
	assertStringSliceEqual(t, lines, []string{"started"})
}

func TestRunner_Run_CancelTerminatesProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cancelledAt time.Time
	var lines []string
	out, err := tools.NewRunner().Run(ctx, sh(`echo ready; sleep 30; echo never`, 60*time.Second), func(l string) {
		lines = append(lines, l)
		if l == "ready" {
			cancelledAt = time.Now()
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != tools.RunCancelled {
		t.Errorf("State: got %s, want cancelled", out.State)
	}
	if d := time.Since(cancelledAt); d > time.Second {
		t.Errorf("cancel took %v", d)
	}
	assertStringSliceEqual(t, lines, []string{"ready"})
}

func TestRunner_Run_CancelKillsChildren(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "survived")
	ctx, cancel := context.WithCancel(context.Background())
	script := fmt.Sprintf(`(sleep 1; touch %s) & echo go; wait`, marker)

	_, out, _ := func() ([]string, tools.Outcome, error) {
		var lines []string
		o, e := tools.NewRunner().Run(ctx, sh(script, 10*time.Second), func(l string) {
			lines = append(lines, l)
			cancel()
		})
		return lines, o, e
	}()
	if out.State != tools.RunCancelled {
		t.Fatalf("State: got %s", out.State)
	}
	time.Sleep(1500 * time.Millisecond)
	if _, err := os.Stat(marker); err == nil {
		t.Error("grandchild process survived cancellation")
	}
}

func TestRunner_Run_BackgroundChildDoesNotBlockCompletion(t *testing.T) {
	start := time.Now()
	lines, out, err := collect(t, context.Background(), sh(`echo hi; sleep 20 &`, 30*time.Second))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != tools.RunCompleted {
		t.Errorf("State: got %s, want completed", out.State)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("run waited for background child: %v", time.Since(start))
	}
	assertStringSliceEqual(t, lines, []string{"hi"})
}

func TestRunner_Run_LaunchFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-exec")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, out, err := collect(t, context.Background(), tools.Spec{Path: path, Timeout: time.Second})
	if err == nil {
		t.Fatal("expected launch error")
	}
	if out.State != tools.RunLaunchFailed {
		t.Errorf("State: got %s, want launch-failed", out.State)
	}
	if len(lines) != 0 {
		t.Errorf("no lines expected, got %v", lines)
	}
}

func TestRunner_Run_AlreadyCancelledDoesNotSpawn(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "spawned")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, out, err := collect(t, ctx, sh("touch "+marker, time.Second))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != tools.RunCancelled {
		t.Errorf("State: got %s", out.State)
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("process was spawned for a cancelled context")
	}
}

func TestRunner_Run_ExtendsSearchPath(t *testing.T) {
	spec := sh(`echo "$PATH"`, 5*time.Second)
	spec.SearchPath = "/opt/sf-tools/bin:/usr/bin:/bin"
	spec.Env = []string{"SF_MARKER=1"}

	lines, _, err := collect(t, context.Background(), spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "/opt/sf-tools/bin:") {
		t.Errorf("PATH: got %v", lines)
	}
}

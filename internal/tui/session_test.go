//go:build !windows

package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/0x6d61/strikeforge/internal/attack"
	"github.com/0x6d61/strikeforge/internal/tools"
)

// newTestManager は dir に置いた偽ツールだけを解決する Manager を返す。
func newTestManager(t *testing.T, scripts map[string]string) *attack.Manager {
	t.Helper()
	dir := t.TempDir()
	reg := tools.NewRegistry()
	for name, script := range scripts {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
			t.Fatal(err)
		}
		reg.Register(&tools.ToolDef{Name: name, Parser: "hydra"})
	}
	m := attack.NewManager(attack.Options{Resolver: tools.NewResolver(reg, dir)})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

func bruteVectors(tool string) fakeVectors {
	return fakeVectors{
		"ssh": {
			Name:     "ssh",
			Category: attack.CategoryBruteForce,
			Commands: []attack.CommandTemplate{{Tool: tool, Args: "-s PORT TARGET ssh"}},
		},
	}
}

func waitResult(t *testing.T, mgr *attack.Manager, id string) *attack.AttackResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r, err := mgr.Wait(ctx, id)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return r
}

func TestSession_LaunchShowsLogAndSummary(t *testing.T) {
	mgr := newTestManager(t, map[string]string{
		"sf-hydra": `echo "[22][ssh] host: 10.0.0.5   login: root   password: toor"`,
	})
	events, unsubscribe := mgr.Subscribe(64)
	defer unsubscribe()

	m := New(context.Background(), mgr, bruteVectors("sf-hydra"), events)
	m.handleResize(140, 50)
	m.ready = true

	m = typeInto(t, m, "ssh 10.0.0.5 22")
	if len(m.sessions) != 1 {
		t.Fatalf("expected 1 session in the list, got %d", len(m.sessions))
	}
	r := waitResult(t, mgr, m.sessions[0].ID)
	if !r.Success {
		t.Fatalf("expected success, got %+v", r)
	}

	next, _ := m.Update(SessionEventMsg(attack.Event{
		Type:      attack.EventComplete,
		SessionID: r.SessionID,
		Vector:    r.Vector,
		Target:    r.Target,
		Status:    r.Status,
		Result:    r,
	}))
	m = next.(Model)

	content := stripANSI(m.sessionContent())
	for _, want := range []string{
		"ssh → 10.0.0.5:22 [completed]",
		"$ sf-hydra -s 22 10.0.0.5 ssh",
		"login: root   password: toor",
		"SUCCESS",
		"root",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in session content:\n%s", want, content)
		}
	}
	if !strings.Contains(m.notice, "ssh → 10.0.0.5: completed") {
		t.Errorf("unexpected notice %q", m.notice)
	}
	if m.running() != 0 {
		t.Error("no session should be running")
	}
}

func TestSession_CancelSelected(t *testing.T) {
	mgr := newTestManager(t, map[string]string{
		"sf-slow": `echo "Hydra starting"
sleep 30`,
	})

	m := New(context.Background(), mgr, bruteVectors("sf-slow"), nil)
	m.handleResize(140, 50)
	m.ready = true

	m = typeInto(t, m, "ssh 10.0.0.5 22")
	m.focus = FocusList
	m.input.Blur()
	if m.running() != 1 {
		t.Fatalf("expected a running session, got %d", m.running())
	}

	next, _ := m.Update(keyRunes("c"))
	m = next.(Model)

	r := waitResult(t, mgr, m.sessions[0].ID)
	if r.Status != attack.StatusStopped {
		t.Errorf("status = %s, want stopped", r.Status)
	}
	if !strings.Contains(m.notice, "キャンセルしました") {
		t.Errorf("unexpected notice %q", m.notice)
	}

	// 終了済みのセッションはキャンセルしない
	next, _ = m.Update(keyRunes("c"))
	m = next.(Model)
	if !strings.Contains(m.notice, "終了済み") {
		t.Errorf("unexpected notice %q", m.notice)
	}
}

func TestSession_MissingToolListedAsFailed(t *testing.T) {
	mgr := newTestManager(t, nil)

	m := New(context.Background(), mgr, bruteVectors("sf-absent"), nil)
	m.handleResize(140, 50)
	m.ready = true

	m = typeInto(t, m, "ssh 10.0.0.5 22")

	if len(m.sessions) != 1 {
		t.Fatalf("failed session should still be listed, got %d", len(m.sessions))
	}
	if got := m.sessions[0].Status(); got != attack.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if !strings.Contains(m.notice, "hint:") {
		t.Errorf("expected install hint, got %q", m.notice)
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.selected != 0 {
		t.Errorf("selection should stay within bounds, got %d", m.selected)
	}
}

package attack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/0x6d61/strikeforge/internal/tools"
)

// セッションが失敗・中断した理由の分類。errors.Is で判定する。
var (
	ErrToolNotFound   = tools.ErrToolNotFound
	ErrLaunchFailure  = errors.New("launch failure")
	ErrTimeout        = errors.New("timed out")
	ErrCancelled      = errors.New("cancelled")
	ErrParseAmbiguous = errors.New("no known success or failure markers")

	ErrSessionNotFound = errors.New("session not found")
	ErrNotFinished     = errors.New("session still running")
)

// Error はどのツールのどの操作で何が起きたかを持つ構造化エラー。
type Error struct {
	Kind  error  // 上の Err* のいずれか
	Tool  string
	Op    string // "resolve" / "launch" / "run"
	Hint  string // 復旧のための案内（インストール方法など）
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op + " ")
	}
	if e.Tool != "" {
		b.WriteString(e.Tool + ": ")
	}
	switch {
	case e.Cause != nil && errors.Is(e.Cause, e.Kind):
		b.WriteString(e.Cause.Error())
	case e.Cause != nil:
		b.WriteString(e.Kind.Error() + ": " + e.Cause.Error())
	default:
		b.WriteString(e.Kind.Error())
	}
	return b.String()
}

// Is は Kind との比較を許す。
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error { return e.Cause }

// LogLine はセッションログに書く人間向けの1行。
func (e *Error) LogLine() string {
	level := "error"
	if e.Kind == ErrParseAmbiguous {
		level = "info"
	}
	line := fmt.Sprintf("[%s] %s", level, e.Error())
	if e.Hint != "" {
		line += " (hint: " + e.Hint + ")"
	}
	return line
}

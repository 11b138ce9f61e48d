package tools

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// ToolStatus はツールの利用可否。
type ToolStatus string

const (
	StatusAvailable         ToolStatus = "available"
	StatusNeedsInstallation ToolStatus = "needs-installation"
	StatusInstalling        ToolStatus = "installing"
	StatusFailed            ToolStatus = "failed"
	StatusUnavailable       ToolStatus = "unavailable"
)

// ErrToolNotFound は必要な実行ファイルが見つからないことを表す。
var ErrToolNotFound = errors.New("tool not found")

// NotFoundError は候補ツールがどれも見つからなかったときのエラー。
// Hints は候補ごとのインストール案内（Candidates と同じ順序）。
type NotFoundError struct {
	Candidates []string
	Hints      []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrToolNotFound, strings.Join(e.Candidates, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrToolNotFound }

// Hint は最優先候補のインストール案内を返す。
func (e *NotFoundError) Hint() string {
	if len(e.Hints) == 0 {
		return ""
	}
	return e.Hints[0]
}

// DefaultSearchDirs はよく使われるインストール先。$PATH より先に探す。
func DefaultSearchDirs() []string {
	dirs := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/usr/bin",
		"/bin",
		"/usr/sbin",
		"/sbin",
		"/snap/bin",
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, "go", "bin"),
			filepath.Join(home, ".local", "bin"),
		)
	}
	return dirs
}

// Resolver は論理ツール名を実行ファイルの絶対パスに解決する。
// 解決結果はキャッシュされ、Refresh で再検査する。
type Resolver struct {
	registry *Registry
	dirs     []string

	mu     sync.RWMutex
	status map[string]ToolStatus
	paths  map[string]string
}

// NewResolver は Resolver を返す。extraDirs は既定ディレクトリより先に探す。
func NewResolver(registry *Registry, extraDirs ...string) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	dirs := make([]string, 0, len(extraDirs)+10)
	dirs = append(dirs, extraDirs...)
	dirs = append(dirs, DefaultSearchDirs()...)
	return &Resolver{
		registry: registry,
		dirs:     dedupe(dirs),
		status:   make(map[string]ToolStatus),
		paths:    make(map[string]string),
	}
}

// Registry は解決に使うツール定義を返す。
func (r *Resolver) Registry() *Registry { return r.registry }

// Resolve は name を絶対パスに解決する。
//
// セキュリティ:
//   - パス区切り文字（/ \）を含む名前は拒否（パストラバーサル防止）
//   - 既知のインストール先 → $PATH の順で実在する実行ファイルのみ許可
func (r *Resolver) Resolve(name string) (string, bool) {
	path, err := r.lookup(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		// インストール中・失敗の状態は外部から設定されたものを保持する
		switch r.status[name] {
		case StatusInstalling, StatusFailed:
		default:
			r.status[name] = StatusNeedsInstallation
		}
		delete(r.paths, name)
		return "", false
	}
	r.status[name] = StatusAvailable
	r.paths[name] = path
	return path, true
}

// Available は実行前チェック用の軽量な存在確認。
func (r *Resolver) Available(name string) bool {
	_, ok := r.Resolve(name)
	return ok
}

// First は candidates を優先順に試し、最初に見つかったツールを返す。
// どれも見つからなければ *NotFoundError を返す。
func (r *Resolver) First(candidates ...string) (name, path string, err error) {
	for _, c := range candidates {
		if p, ok := r.Resolve(c); ok {
			return c, p, nil
		}
	}
	nf := &NotFoundError{Candidates: candidates}
	for _, c := range candidates {
		nf.Hints = append(nf.Hints, r.registry.InstallHint(c))
	}
	return "", "", nf
}

// IsInstalled は外部のツール検出インターフェース向け。
func (r *Resolver) IsInstalled(name string) bool {
	return r.Available(name)
}

// Path は解決済みのパスを返す。未解決なら空文字。
func (r *Resolver) Path(name string) string {
	p, _ := r.Resolve(name)
	return p
}

// SetStatus はインストーラーなど外部の協調者が状態を更新するためのもの。
func (r *Resolver) SetStatus(name string, s ToolStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[name] = s
}

// Refresh は登録済みの全ツールを再検査する。
func (r *Resolver) Refresh() map[string]ToolStatus {
	for _, d := range r.registry.All() {
		r.Resolve(d.Name)
	}
	return r.Availability()
}

// Availability は現在の状態のスナップショットを返す。
// 一度も検査していない登録済みツールは unavailable。
func (r *Resolver) Availability() map[string]ToolStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ToolStatus, len(r.status))
	for _, d := range r.registry.All() {
		out[d.Name] = StatusUnavailable
	}
	for k, v := range r.status {
		out[k] = v
	}
	return out
}

// SearchPath は子プロセスに渡す PATH。既知のインストール先を $PATH の前に足す。
func (r *Resolver) SearchPath() string {
	parts := append([]string{}, r.dirs...)
	parts = append(parts, filepath.SplitList(os.Getenv("PATH"))...)
	return strings.Join(dedupe(parts), string(os.PathListSeparator))
}

func (r *Resolver) lookup(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("tool name must not be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("tool name must not contain path separators: %q", name)
	}
	bin := r.registry.Lookup(name).BinaryName()
	if strings.ContainsAny(bin, `/\`) {
		return "", fmt.Errorf("binary name must not contain path separators: %q", bin)
	}

	for _, dir := range r.dirs {
		candidate := filepath.Join(dir, bin)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	absPath, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("binary %q not found: %w", bin, err)
	}
	if !filepath.IsAbs(absPath) {
		return "", fmt.Errorf("resolved path is not absolute: %q", absPath)
	}
	return absPath, nil
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode().Perm()&0o111 != 0
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

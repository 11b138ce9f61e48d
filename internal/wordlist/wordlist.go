// Package wordlist writes the small built-in wordlists that brute-force and
// directory enumeration vectors reference by path.
package wordlist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ベクターのテンプレートから ${VAR} で参照する変数名。
const (
	VarUsers     = "WORDLIST_USERS"
	VarPasswords = "WORDLIST_PASSWORDS"
	VarDirs      = "WORDLIST_DIRS"
)

var builtin = map[string]struct {
	file  string
	words []string
}{
	VarUsers: {"users.txt", []string{
		"root", "admin", "administrator", "user", "test", "guest", "ubuntu", "ftp", "oracle", "postgres", "msfadmin",
	}},
	VarPasswords: {"passwords.txt", []string{
		"123456", "password", "admin", "root", "toor", "12345678", "qwerty", "letmein", "changeme", "P@ssw0rd", "msfadmin",
	}},
	VarDirs: {"dirs.txt", []string{
		"admin", "login", "uploads", "backup", "images", "api", "config", ".git", "wp-admin", "phpmyadmin",
		"server-status", "robots.txt", "test", "dev", "old",
	}},
}

// Ensure は dir に組み込みワードリストを書き出し、変数名からパスへの対応を返す。
// 既にファイルがあれば上書きしない（利用者が差し替えたリストを尊重する）。
func Ensure(dir string) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wordlist: create %s: %w", dir, err)
	}
	vars := make(map[string]string, len(builtin))
	for name, wl := range builtin {
		path := filepath.Join(dir, wl.file)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			content := strings.Join(wl.words, "\n") + "\n"
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return nil, fmt.Errorf("wordlist: write %s: %w", path, err)
			}
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		vars[name] = abs
	}
	return vars, nil
}

// Words は組み込みリストの内容を返す。未知の変数名なら nil。
func Words(name string) []string {
	wl, ok := builtin[name]
	if !ok {
		return nil
	}
	out := make([]string, len(wl.words))
	copy(out, wl.words)
	return out
}

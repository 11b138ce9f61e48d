package tools

import (
	"strconv"
	"strings"
)

// テンプレート中のプレースホルダー。置換対象はこの2つだけ。
const (
	TokenTarget = "TARGET"
	TokenPort   = "PORT"
)

// Render はコマンドテンプレートの TARGET / PORT を置換し、引数スライスに分割する。
//
// シェルは経由しない: 空白で区切るだけで、クォートや変数展開は解釈しない。
// 純粋関数なので同じ入力には常に同じ出力を返す。
func Render(template, target string, port int) []string {
	return strings.Fields(Substitute(template, target, port))
}

// Substitute は置換のみを行い、分割前の文字列を返す（ログ表示用）。
func Substitute(template, target string, port int) string {
	r := strings.NewReplacer(TokenTarget, target, TokenPort, strconv.Itoa(port))
	return r.Replace(template)
}

// HasPlaceholders はテンプレートに未置換のトークンが残っているかを返す。
func HasPlaceholders(s string) bool {
	return strings.Contains(s, TokenTarget) || strings.Contains(s, TokenPort)
}

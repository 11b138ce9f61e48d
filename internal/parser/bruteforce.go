package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// hydraPrefix は hydra の成功行の先頭 "[22][ssh]"。
var hydraPrefix = regexp.MustCompile(`^\s*\[(\d+)\]\[([^\]]+)\]`)

// medusaService は medusa の成功行に含まれる "[ssh]"。
var medusaService = regexp.MustCompile(`\[([a-zA-Z0-9_-]+)\]`)

// NewHydra は hydra の出力パーサーを返す。
//
//	[22][ssh] host: 10.0.0.5   login: root   password: toor
func NewHydra(ctx Context) Parser {
	return newRuleParser(ctx, hydraRule)
}

func hydraRule(ctx Context, line string) []Finding {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "login:") || !strings.Contains(lower, "password:") {
		return nil
	}
	user, pass, ok := positional(line, "login:", "password:")
	if !ok {
		return nil
	}
	cred := &Credential{Username: user, Password: pass, Port: ctx.Port}
	if m := hydraPrefix.FindStringSubmatch(line); m != nil {
		if port, err := strconv.Atoi(m[1]); err == nil {
			cred.Port = port
		}
		cred.Service = strings.ToUpper(m[2])
	}
	if cred.Service == "" {
		cred.Service = serviceForPort(cred.Port)
	}
	return []Finding{{Kind: KindCredential, Credential: cred}}
}

// NewMedusa は medusa の出力パーサーを返す。
//
//	ACCOUNT FOUND: [ssh] Host: 10.0.0.5 User: root Password: toor [SUCCESS]
func NewMedusa(ctx Context) Parser {
	return newRuleParser(ctx, medusaRule)
}

func medusaRule(ctx Context, line string) []Finding {
	if !strings.Contains(line, "ACCOUNT FOUND") {
		return nil
	}
	user, pass, ok := positional(line, "user:", "password:")
	if !ok {
		return nil
	}
	// 空パスワードのときは直後の [SUCCESS] がトークンとして拾われる
	if pass == "[SUCCESS]" {
		pass = ""
	}
	cred := &Credential{Username: user, Password: pass, Port: ctx.Port}
	if m := medusaService.FindStringSubmatch(line); m != nil {
		cred.Service = strings.ToUpper(m[1])
	} else {
		cred.Service = serviceForPort(ctx.Port)
	}
	return []Finding{{Kind: KindCredential, Credential: cred}}
}

// positional は userMarker の直後のトークンをユーザー名、
// passMarker 以降の最初のトークンをパスワードとして取り出す。
// マーカーの大文字小文字は無視する。
func positional(line, userMarker, passMarker string) (user, pass string, ok bool) {
	fields := strings.Fields(line)
	ui, pi := -1, -1
	for i, f := range fields {
		switch strings.ToLower(f) {
		case userMarker:
			if ui < 0 {
				ui = i
			}
		case passMarker:
			if pi < 0 {
				pi = i
			}
		}
	}
	if ui < 0 || pi < 0 || ui+1 >= len(fields) || ui+1 == pi {
		return "", "", false
	}
	user = fields[ui+1]
	// パスワード欄は空のこともある
	if pi+1 < len(fields) {
		pass = fields[pi+1]
	}
	return user, pass, true
}

var wellKnownPorts = map[int]string{
	21:   "FTP",
	22:   "SSH",
	23:   "TELNET",
	25:   "SMTP",
	80:   "HTTP",
	110:  "POP3",
	143:  "IMAP",
	443:  "HTTPS",
	445:  "SMB",
	3306: "MYSQL",
	3389: "RDP",
	5432: "POSTGRES",
}

func serviceForPort(port int) string {
	if s, ok := wellKnownPorts[port]; ok {
		return s
	}
	return "UNKNOWN"
}

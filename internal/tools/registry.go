package tools

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry はロード済みのツール定義を管理する。
// 定義がないツールも解決はできる（論理名＝バイナリ名として扱う）。
type Registry struct {
	defs map[string]*ToolDef
}

// NewRegistry は組み込み定義を登録済みの Registry を返す。
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]*ToolDef)}
	for _, d := range builtinDefs() {
		r.Register(d)
	}
	return r
}

// LoadDir は dir 以下の *.yaml / *.yml をロードしてツール定義を登録する。
// 同名の定義は上書きされる。dir が存在しなければ何もしない。
func (r *Registry) LoadDir(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !(strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
			return nil
		}
		if loadErr := r.loadFile(path); loadErr != nil {
			return fmt.Errorf("load %s: %w", path, loadErr)
		}
		return nil
	})
}

func (r *Registry) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var def ToolDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if def.Name == "" {
		return fmt.Errorf("tool definition missing 'name' field")
	}
	r.defs[def.Name] = &def
	return nil
}

// Register はプログラム的に ToolDef を登録する。
func (r *Registry) Register(def *ToolDef) {
	r.defs[def.Name] = def
}

// Get は論理名に対応する ToolDef を返す。
func (r *Registry) Get(name string) (*ToolDef, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Lookup は定義がなければ論理名だけを持つ ToolDef を返す。
func (r *Registry) Lookup(name string) *ToolDef {
	if d, ok := r.defs[name]; ok {
		return d
	}
	return &ToolDef{Name: name}
}

// InstallHint はツールのインストール案内を返す。
func (r *Registry) InstallHint(name string) string {
	if d, ok := r.defs[name]; ok && d.InstallHint != "" {
		return d.InstallHint
	}
	return fmt.Sprintf("install %q and make sure it is on PATH", name)
}

// All は登録済みの全 ToolDef を名前順で返す。
func (r *Registry) All() []*ToolDef {
	result := make([]*ToolDef, 0, len(r.defs))
	for _, d := range r.defs {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// builtinDefs は組み込みのツール定義。
func builtinDefs() []*ToolDef {
	return []*ToolDef{
		{Name: "hydra", Description: "network login brute forcer", Tags: []string{"brute-force"}, TimeoutSec: 600, InstallHint: "brew install hydra / apt install hydra"},
		{Name: "medusa", Description: "parallel login brute forcer", Tags: []string{"brute-force"}, TimeoutSec: 600, InstallHint: "apt install medusa"},
		{Name: "gobuster", Description: "directory enumeration", Tags: []string{"directory-enumeration"}, TimeoutSec: 300, InstallHint: "go install github.com/OJ/gobuster/v3@latest"},
		{Name: "dirb", Description: "directory enumeration", Tags: []string{"directory-enumeration"}, TimeoutSec: 300, InstallHint: "apt install dirb"},
		{Name: "ffuf", Description: "web fuzzer", Tags: []string{"directory-enumeration"}, TimeoutSec: 300, InstallHint: "go install github.com/ffuf/ffuf/v2@latest"},
		{Name: "dirsearch", Description: "web path scanner", Tags: []string{"directory-enumeration"}, TimeoutSec: 300, InstallHint: "pip install dirsearch"},
		{Name: "sqlmap", Description: "SQL injection testing", Tags: []string{"vulnerability-exploit"}, TimeoutSec: 900, InstallHint: "brew install sqlmap / apt install sqlmap"},
		{Name: "nikto", Description: "web server scanner", Tags: []string{"web-vuln-scan"}, TimeoutSec: 900, InstallHint: "brew install nikto / apt install nikto"},
		{Name: "nuclei", Description: "template based vulnerability scanner", Tags: []string{"web-vuln-scan"}, TimeoutSec: 900, InstallHint: "go install github.com/projectdiscovery/nuclei/v3/cmd/nuclei@latest"},
		{Name: "nmap", Description: "network mapper", Tags: []string{"network-recon"}, TimeoutSec: 600, InstallHint: "brew install nmap / apt install nmap"},
	}
}

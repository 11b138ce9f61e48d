package attack

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/0x6d61/strikeforge/internal/config"
	"github.com/0x6d61/strikeforge/internal/tools"
)

// Catalog は名前付きのアタックベクター一覧。
// テンプレート中の ${VAR} は登録時に展開され、以後は TARGET / PORT だけが残る。
type Catalog struct {
	mu        sync.RWMutex
	vectors   map[string]AttackVector
	vars      map[string]string
	blacklist *tools.Blacklist
}

// NewCatalog は空の Catalog を返す。vars は ${VAR} 展開で環境変数より優先される。
func NewCatalog(vars map[string]string, bl *tools.Blacklist) *Catalog {
	return &Catalog{
		vectors:   make(map[string]AttackVector),
		vars:      vars,
		blacklist: bl,
	}
}

// NewDefaultCatalog は組み込みベクターを登録済みの Catalog を返す。
func NewDefaultCatalog(vars map[string]string, bl *tools.Blacklist) (*Catalog, error) {
	c := NewCatalog(vars, bl)
	for _, v := range BuiltinVectors() {
		if err := c.Add(v); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add は v を展開・検証して登録する。同名のベクターは置き換えられる。
func (c *Catalog) Add(v AttackVector) error {
	v = c.expand(v)
	if err := v.Validate(c.blacklist); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors[v.Name] = v
	return nil
}

// LoadDir は dir 以下の *.yaml / *.yml を読み込む。1ファイルに複数ベクターを書ける。
// dir が存在しなければ何もしない。
func (c *Catalog) LoadDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !(strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
			return nil
		}
		if loadErr := c.loadFile(path); loadErr != nil {
			return fmt.Errorf("load %s: %w", path, loadErr)
		}
		return nil
	})
}

func (c *Catalog) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc struct {
		Vectors []AttackVector `yaml:"vectors"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	for _, v := range doc.Vectors {
		if err := c.Add(v); err != nil {
			return err
		}
	}
	return nil
}

// Get は名前でベクターを返す。
func (c *Catalog) Get(name string) (AttackVector, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vectors[name]
	return v, ok
}

// All は全ベクターを名前順で返す。
func (c *Catalog) All() []AttackVector {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]AttackVector, 0, len(c.vectors))
	for _, v := range c.vectors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByCategory はカテゴリに属するベクターを名前順で返す。
func (c *Catalog) ByCategory(cat Category) []AttackVector {
	var out []AttackVector
	for _, v := range c.All() {
		if v.Category == cat {
			out = append(out, v)
		}
	}
	return out
}

// expand はコマンドテンプレートの ${VAR} を展開したコピーを返す。
func (c *Catalog) expand(v AttackVector) AttackVector {
	cmds := make([]CommandTemplate, len(v.Commands))
	for i, cmd := range v.Commands {
		cmds[i] = c.expandTemplate(cmd)
	}
	v.Commands = cmds
	v.RequiredTools = append([]string(nil), v.RequiredTools...)
	return v
}

func (c *Catalog) expandTemplate(t CommandTemplate) CommandTemplate {
	t.Args = config.ExpandEnv(t.Args, c.vars)
	if t.Fallback != nil {
		fb := c.expandTemplate(*t.Fallback)
		t.Fallback = &fb
	}
	return t
}

// BuiltinVectors は組み込みのアタックベクター。
// ワードリストは ${WORDLIST_*} で参照する（internal/wordlist が用意する）。
func BuiltinVectors() []AttackVector {
	return []AttackVector{
		{
			Name:          "ssh-brute-force",
			Category:      CategoryBruteForce,
			Description:   "SSH login brute force with hydra",
			RequiredTools: []string{"hydra"},
			Commands: []CommandTemplate{{
				Tool: "hydra",
				Args: "-L ${WORDLIST_USERS} -P ${WORDLIST_PASSWORDS} -s PORT -t 4 -f TARGET ssh",
				Fallback: &CommandTemplate{
					Tool: "medusa",
					Args: "-h TARGET -n PORT -U ${WORDLIST_USERS} -P ${WORDLIST_PASSWORDS} -M ssh -f",
				},
			}},
		},
		{
			Name:          "ftp-brute-force",
			Category:      CategoryBruteForce,
			Description:   "FTP login brute force with hydra",
			RequiredTools: []string{"hydra"},
			Commands: []CommandTemplate{{
				Tool: "hydra",
				Args: "-L ${WORDLIST_USERS} -P ${WORDLIST_PASSWORDS} -s PORT -t 4 -f TARGET ftp",
				Fallback: &CommandTemplate{
					Tool: "medusa",
					Args: "-h TARGET -n PORT -U ${WORDLIST_USERS} -P ${WORDLIST_PASSWORDS} -M ftp -f",
				},
			}},
		},
		{
			Name:          "directory-enumeration",
			Category:      CategoryDirEnum,
			Description:   "Web content discovery with gobuster, falling back to dirb",
			RequiredTools: []string{"gobuster", "dirb"},
			Commands: []CommandTemplate{{
				Tool: "gobuster",
				Args: "dir -u http://TARGET:PORT -w ${WORDLIST_DIRS} -q --no-progress",
				Fallback: &CommandTemplate{
					Tool: "dirb",
					Args: "http://TARGET:PORT ${WORDLIST_DIRS} -S",
				},
			}},
		},
		{
			Name:          "sql-injection",
			Category:      CategoryExploit,
			Description:   "Automated SQL injection testing with sqlmap",
			RequiredTools: []string{"sqlmap"},
			Commands: []CommandTemplate{{
				Tool: "sqlmap",
				Args: "-u http://TARGET:PORT/ --batch --crawl=2 --level=1 --risk=1",
			}},
		},
		{
			Name:          "web-vuln-scan",
			Category:      CategoryWebVulnScan,
			Description:   "Web server scan with nikto",
			RequiredTools: []string{"nikto"},
			Commands: []CommandTemplate{{
				Tool: "nikto",
				Args: "-h TARGET -p PORT -nointeractive",
			}},
		},
		{
			Name:          "nuclei-scan",
			Category:      CategoryWebVulnScan,
			Description:   "Template based vulnerability scan with nuclei",
			RequiredTools: []string{"nuclei"},
			Commands: []CommandTemplate{{
				Tool: "nuclei",
				Args: "-u http://TARGET:PORT -silent -nc",
			}},
		},
		{
			Name:          "service-scan",
			Category:      CategoryNetworkRecon,
			Description:   "Service and vulnerability script scan with nmap",
			RequiredTools: []string{"nmap"},
			Commands: []CommandTemplate{
				{Tool: "nmap", Args: "-Pn -sV -p PORT TARGET"},
				{Tool: "nmap", Args: "-Pn --script vuln -p PORT TARGET"},
			},
		},
	}
}

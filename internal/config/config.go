package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ToolsConfig はツール解決の設定
type ToolsConfig struct {
	Dir        string   `yaml:"dir"`         // ツール定義 YAML のディレクトリ
	SearchDirs []string `yaml:"search_dirs"` // 既定のインストール先より先に探すディレクトリ
}

// RunnerConfig はプロセス実行の設定
type RunnerConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MetricsConfig は Prometheus エンドポイントの設定。Addr が空なら公開しない。
type MetricsConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// AppConfig は config/config.yaml の統合設定構造
type AppConfig struct {
	Tools     ToolsConfig   `yaml:"tools"`
	Runner    RunnerConfig  `yaml:"runner"`
	Blacklist []string      `yaml:"blacklist"`
	Vectors   string        `yaml:"vectors"`    // 追加のアタックベクター YAML ディレクトリ
	Memory    string        `yaml:"memory"`     // 発見物の保存先
	RawOutput string        `yaml:"raw_output"` // セッション生出力の保存先
	Wordlists string        `yaml:"wordlists"`  // 組み込みワードリストの書き出し先
	Log       LogConfig     `yaml:"log"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// applyDefaults はゼロ値のフィールドにデフォルト値を適用する
func (c *AppConfig) applyDefaults() {
	if c.Tools.Dir == "" {
		c.Tools.Dir = "tools"
	}
	if c.Runner.DefaultTimeout == 0 {
		c.Runner.DefaultTimeout = 300 * time.Second
	}
	if c.Runner.PollInterval == 0 {
		c.Runner.PollInterval = 50 * time.Millisecond
	}
	if c.Vectors == "" {
		c.Vectors = "vectors"
	}
	if c.Memory == "" {
		c.Memory = "memory"
	}
	if c.RawOutput == "" {
		c.RawOutput = "raw_output"
	}
	if c.Wordlists == "" {
		c.Wordlists = "wordlists"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Default はファイルがないときの設定を返す。
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadDotEnv は .env を環境変数に読み込む。既存の環境変数は上書きしない。
// ファイルが存在しない場合は何もしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: failed to load %v: %w", existing, err)
	}
	return nil
}

// Load は config/config.yaml を読み込む。
// ${VAR} 環境変数を展開する。
// ファイルが存在しない場合はデフォルトの AppConfig を返す。
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	// パス系の ${VAR} を展開
	cfg.Tools.Dir = ExpandEnv(cfg.Tools.Dir, nil)
	for i := range cfg.Tools.SearchDirs {
		cfg.Tools.SearchDirs[i] = ExpandEnv(cfg.Tools.SearchDirs[i], nil)
	}
	cfg.Vectors = ExpandEnv(cfg.Vectors, nil)
	cfg.Memory = ExpandEnv(cfg.Memory, nil)
	cfg.RawOutput = ExpandEnv(cfg.RawOutput, nil)
	cfg.Wordlists = ExpandEnv(cfg.Wordlists, nil)
	cfg.Log.File = ExpandEnv(cfg.Log.File, nil)
	cfg.Metrics.Addr = ExpandEnv(cfg.Metrics.Addr, nil)

	cfg.applyDefaults()

	return &cfg, nil
}

// ExpandEnv は文字列内の ${VAR} を展開する。
// vars に同名のキーがあればそちらを優先し、なければホスト環境変数を使う。
func ExpandEnv(s string, vars map[string]string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if v, ok := vars[varName]; ok {
			return v
		}
		return os.Getenv(varName)
	})
}

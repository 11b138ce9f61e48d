package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/0x6d61/strikeforge/internal/attack"
	"github.com/0x6d61/strikeforge/internal/config"
	"github.com/0x6d61/strikeforge/internal/logging"
	"github.com/0x6d61/strikeforge/internal/memory"
	"github.com/0x6d61/strikeforge/internal/tools"
	"github.com/0x6d61/strikeforge/internal/tui"
	"github.com/0x6d61/strikeforge/internal/wordlist"
)

// shutdownGrace は終了時にセッションの後始末を待つ上限。
const shutdownGrace = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "config/config.yaml", "設定ファイル")
		envFile     = flag.String("env", ".env", "環境変数ファイル（存在しなければ無視）")
		vectorNames = flag.String("vector", "", "実行するアタックベクター（カンマ区切りで複数可）")
		target      = flag.String("target", "", "ターゲットのホスト名または IP")
		port        = flag.Int("port", 0, "ターゲットのポート")
		useTUI      = flag.Bool("tui", false, "ダッシュボードを起動する")
		quiet       = flag.Bool("quiet", false, "ツール出力を逐次表示せず、終了時のプレビューだけ出す")
		listVectors = flag.Bool("list-vectors", false, "利用できるアタックベクターを一覧表示する")
		checkTools  = flag.Bool("check-tools", false, "ツールのインストール状況を表示する")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `⚡ Strikeforge: attack session engine for external security tools

Usage:
  strikeforge [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  strikeforge -list-vectors
  strikeforge -check-tools
  strikeforge -vector ssh-brute-force -target 10.0.0.5 -port 22
  strikeforge -vector directory-enumeration,web-vuln-scan -target example.com -port 80
  strikeforge -tui
`)
	}
	flag.Parse()

	// --- Config ---
	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, "環境変数ファイル読み込みエラー:", err)
		return 1
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "設定エラー:", err)
		return 1
	}

	// --- Logging ---
	var logOut io.Writer = os.Stderr
	if *useTUI {
		logOut = io.Discard
	}
	logger, closeLog, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Out: logOut})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ログ設定エラー:", err)
		return 1
	}
	defer closeLog()

	// --- Tools ---
	registry := tools.NewRegistry()
	if err := registry.LoadDir(cfg.Tools.Dir); err != nil {
		fmt.Fprintf(os.Stderr, "ツールロードエラー: %v\n", err)
		return 1
	}
	resolver := tools.NewResolver(registry, cfg.Tools.SearchDirs...)
	if *checkTools {
		printToolStatus(os.Stdout, resolver)
		return 0
	}

	// --- Vectors ---
	wordlists, err := wordlist.Ensure(cfg.Wordlists)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ワードリスト準備エラー:", err)
		return 1
	}
	patterns := cfg.Blacklist
	if len(patterns) == 0 {
		patterns = tools.DefaultBlacklistPatterns
	}
	catalog, err := attack.NewDefaultCatalog(wordlists, tools.NewBlacklist(patterns))
	if err != nil {
		fmt.Fprintln(os.Stderr, "ベクター定義エラー:", err)
		return 1
	}
	if err := catalog.LoadDir(cfg.Vectors); err != nil {
		fmt.Fprintln(os.Stderr, "ベクター定義エラー:", err)
		return 1
	}
	if *listVectors {
		printVectors(os.Stdout, catalog, resolver)
		return 0
	}

	// --- Manager ---
	runner := tools.NewRunner()
	runner.PollInterval = cfg.Runner.PollInterval
	metrics := attack.NewMetrics()
	manager := attack.NewManager(attack.Options{
		Resolver:       resolver,
		Runner:         runner,
		Metrics:        metrics,
		Logger:         logger,
		DefaultTimeout: cfg.Runner.DefaultTimeout,
	})

	// グレースフルシャットダウン
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics, metrics, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	// --- Findings recorder ---
	// シグナル後も終了イベントを書き切るよう、購読解除（チャネルのクローズ）で止める
	recEvents, unsubscribeRec := manager.Subscribe(0)
	recorder := memory.NewRecorder(memory.NewStore(cfg.Memory), cfg.RawOutput, logger)
	recDone := make(chan struct{})
	go func() {
		defer close(recDone)
		recorder.Run(context.Background(), recEvents)
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := manager.Shutdown(sctx); err != nil {
			logger.WithError(err).Warn("sessions did not stop in time")
		}
		unsubscribeRec()
		<-recDone
	}()

	if *useTUI {
		return runTUI(ctx, manager, catalog)
	}

	if *vectorNames == "" || *target == "" {
		flag.Usage()
		return 2
	}
	var vectors []attack.AttackVector
	for _, name := range strings.Split(*vectorNames, ",") {
		name = strings.TrimSpace(name)
		v, ok := catalog.Get(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown vector %q (see -list-vectors)\n", name)
			return 2
		}
		vectors = append(vectors, v)
	}

	c := newConsole(os.Stdout, *quiet)
	events, unsubscribe := manager.Subscribe(0)
	defer unsubscribe()
	return c.run(ctx, manager, events, vectors, *target, *port)
}

// runTUI はダッシュボードを起動する（ブロッキング）。
func runTUI(ctx context.Context, manager *attack.Manager, catalog *attack.Catalog) int {
	events, unsubscribe := manager.Subscribe(0)
	defer unsubscribe()

	m := tui.New(ctx, manager, catalog, events)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintln(os.Stderr, "TUI エラー:", err)
		return 1
	}
	return 0
}

// serveMetrics は Prometheus エンドポイントをバックグラウンドで公開する。
func serveMetrics(cfg config.MetricsConfig, metrics *attack.Metrics, logger logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler())
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()
	logger.WithFields(logrus.Fields{"addr": cfg.Addr, "path": cfg.Path}).Info("metrics endpoint listening")
	return srv
}

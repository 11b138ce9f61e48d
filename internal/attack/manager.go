package attack

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/0x6d61/strikeforge/internal/parser"
	"github.com/0x6d61/strikeforge/internal/tools"
)

const tracerName = "github.com/0x6d61/strikeforge/internal/attack"

// DefaultEventBuffer は Subscribe のバッファ既定値。
const DefaultEventBuffer = 256

// ToolResolver は Manager が使うツール解決の窓口。*tools.Resolver が満たす。
type ToolResolver interface {
	First(candidates ...string) (name, path string, err error)
	SearchPath() string
	Registry() *tools.Registry
}

// Options は Manager の構成。nil のフィールドは既定値で埋める。
type Options struct {
	Resolver       ToolResolver
	Runner         *tools.Runner
	Parsers        *parser.Registry
	Logs           *tools.LogStore
	Metrics        *Metrics
	Logger         logrus.FieldLogger
	DefaultTimeout time.Duration // ツール定義にもテンプレートにもタイムアウトがないとき
}

// Manager はセッションの生成・追跡・終了を管理する。
// 明示的に作ってハンドルとして渡す。グローバルな状態は持たない。
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	resolver ToolResolver
	runner   *tools.Runner
	parsers  *parser.Registry
	logs     *tools.LogStore
	metrics  *Metrics
	log      logrus.FieldLogger
	tracer   trace.Tracer
	agg      Aggregator
	timeout  time.Duration

	subMu  sync.RWMutex
	subs   map[int]chan Event
	nextID int

	wg sync.WaitGroup
}

// NewManager は Manager を構築する。
func NewManager(opts Options) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		resolver: opts.Resolver,
		runner:   opts.Runner,
		parsers:  opts.Parsers,
		logs:     opts.Logs,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		tracer:   otel.Tracer(tracerName),
		timeout:  opts.DefaultTimeout,
		subs:     make(map[int]chan Event),
	}
	if m.resolver == nil {
		m.resolver = tools.NewResolver(tools.NewRegistry())
	}
	if m.runner == nil {
		m.runner = tools.NewRunner()
	}
	if m.parsers == nil {
		m.parsers = parser.DefaultRegistry()
	}
	if m.logs == nil {
		m.logs = tools.NewLogStore()
	}
	if m.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		m.log = l
	}
	if m.timeout <= 0 {
		m.timeout = tools.DefaultTimeout
	}
	return m
}

// Logs はコマンド単位の実行記録を返す。
func (m *Manager) Logs() *tools.LogStore { return m.logs }

// plannedCommand は解決済みの1コマンド。
type plannedCommand struct {
	tool     string
	path     string
	args     []string
	timeout  time.Duration
	parserID string
}

// Start はセッションを作成し、バックグラウンドでコマンド列を実行する。
//
// 必要なツールはすべて起動前に解決する。1つでも見つからなければ
// 何も起動せずにセッションを failed にし、ID とエラーの両方を返す。
func (m *Manager) Start(ctx context.Context, v AttackVector, target string, port int) (string, error) {
	if strings.TrimSpace(target) == "" {
		return "", errors.New("target must not be empty")
	}
	if port < 0 || port > 65535 {
		return "", fmt.Errorf("port out of range: %d", port)
	}
	if len(v.Commands) == 0 {
		return "", fmt.Errorf("vector %q has no commands", v.Name)
	}

	id := uuid.NewString()
	s := newSession(id, v, target, port)
	sessCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	log := m.log.WithFields(logrus.Fields{
		"session":  id,
		"vector":   v.Name,
		"category": v.Category,
		"target":   target,
		"port":     port,
	})
	log.Info("session started")
	m.metrics.sessionStarted(v.Category)
	m.emit(Event{Type: EventStatus, SessionID: id, Vector: v.Name, Target: target, Port: port, Status: StatusRunning})

	plan, err := m.plan(v, target, port)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			s.appendLine(ae.LogLine())
		} else {
			s.appendLine("[error] " + err.Error())
		}
		log.WithError(err).Warn("session failed before launch")
		m.finish(s, StatusFailed, err, nil)
		cancel()
		return id, err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.drive(sessCtx, s, plan, log)
	}()
	return id, nil
}

// plan はテンプレートを展開し、全ツールを解決する。
func (m *Manager) plan(v AttackVector, target string, port int) ([]plannedCommand, error) {
	registry := m.resolver.Registry()

	covered := make(map[string]bool)
	for _, c := range v.Commands {
		for _, name := range c.Candidates() {
			covered[name] = true
		}
	}
	// コマンドに現れない必須ツールは、呼び出されるツールが内部で使う補助ツール
	for _, name := range v.RequiredTools {
		if covered[name] {
			continue
		}
		if _, _, err := m.resolver.First(name); err != nil {
			return nil, notFound(name, err)
		}
	}

	plan := make([]plannedCommand, 0, len(v.Commands))
	for i := range v.Commands {
		tpl := &v.Commands[i]
		name, path, err := m.resolver.First(tpl.Candidates()...)
		if err != nil {
			return nil, notFound(strings.Join(tpl.Candidates(), "|"), err)
		}
		chosen := tpl.forTool(name)
		def := registry.Lookup(name)

		timeout := chosen.Timeout
		if timeout <= 0 {
			timeout = def.Timeout()
		}
		if timeout <= 0 {
			timeout = m.timeout
		}
		plan = append(plan, plannedCommand{
			tool:     name,
			path:     path,
			args:     tools.Render(chosen.Args, target, port),
			timeout:  timeout,
			parserID: def.ParserID(),
		})
	}
	return plan, nil
}

func notFound(tool string, err error) *Error {
	e := &Error{Kind: ErrToolNotFound, Tool: tool, Op: "resolve", Cause: err}
	var nf *tools.NotFoundError
	if errors.As(err, &nf) {
		e.Hint = nf.Hint()
	}
	return e
}

// drive はセッションのコマンド列を順に実行する。セッションの唯一の書き込み手。
func (m *Manager) drive(ctx context.Context, s *Session, plan []plannedCommand, log logrus.FieldLogger) {
	ctx, span := m.tracer.Start(ctx, "attack.session",
		trace.WithAttributes(
			attribute.String("session.id", s.ID),
			attribute.String("vector.name", s.Vector.Name),
			attribute.String("vector.category", string(s.Vector.Category)),
			attribute.String("target.host", s.Target),
			attribute.Int("target.port", s.Port),
		),
	)
	defer span.End()

	var (
		runs     []*tools.RunRecord
		status   = StatusCompleted
		finalErr error
		stopped  bool
	)

	for _, pc := range plan {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		rec, err := m.runCommand(ctx, s, pc, log)
		runs = append(runs, rec)
		if err != nil {
			status, finalErr = StatusFailed, err
			break
		}
		if rec.State == tools.RunCancelled {
			stopped = true
			break
		}
		s.commandDone()
		if rec.State == tools.RunTimedOut && finalErr == nil {
			// タイムアウトしても残りのコマンドは続ける
			status = StatusFailed
			finalErr = &Error{Kind: ErrTimeout, Tool: pc.tool, Op: "run"}
		}
	}

	// stopped はコマンドを強制終了したかスキップしたときだけ。
	// 最後のコマンドが自然終了した後に届いた停止要求では completed のまま。
	// 停止要求はタイムアウトより優先する
	if stopped {
		ce := &Error{Kind: ErrCancelled, Op: "session"}
		s.appendLine(ce.LogLine())
		status, finalErr = StatusStopped, ce
	}

	if finalErr != nil {
		span.RecordError(finalErr)
		span.SetStatus(codes.Error, finalErr.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	result := m.finish(s, status, finalErr, runs)
	if result != nil {
		span.SetAttributes(
			attribute.Bool("result.success", result.Success),
			attribute.Bool("result.ambiguous", result.Ambiguous),
			attribute.String("result.severity", string(result.Severity)),
		)
		log.WithFields(logrus.Fields{
			"status":    status,
			"success":   result.Success,
			"ambiguous": result.Ambiguous,
			"findings":  len(s.Findings()),
		}).Info("session finished")
	}
}

// runCommand は1コマンドを実行し、出力をパーサーとセッションログに流す。
// 戻り値のエラーは起動失敗のときだけ。
func (m *Manager) runCommand(ctx context.Context, s *Session, pc plannedCommand, log logrus.FieldLogger) (*tools.RunRecord, error) {
	ctx, span := m.tracer.Start(ctx, "attack.command",
		trace.WithAttributes(
			attribute.String("tool.name", pc.tool),
			attribute.String("tool.path", pc.path),
			attribute.StringSlice("tool.args", pc.args),
		),
	)
	defer span.End()

	started := time.Now()
	rec := &tools.RunRecord{
		ID:        tools.MakeID(pc.tool, s.Target, started),
		Session:   s.ID,
		ToolName:  pc.tool,
		Target:    s.Target,
		Path:      pc.path,
		Args:      pc.args,
		StartedAt: started,
	}
	s.setCurrentTool(pc.tool)
	s.appendLine("$ " + strings.Join(append([]string{pc.tool}, pc.args...), " "))

	p := m.parsers.For(pc.parserID, parser.Context{Tool: pc.tool, Target: s.Target, Port: s.Port})
	entities := tools.NewEntityCollector()
	clog := log.WithField("tool", pc.tool)
	clog.WithField("args", pc.args).Debug("command started")

	onLine := func(line string) {
		s.appendLine(line)
		rec.Lines = append(rec.Lines, tools.OutputLine{Time: time.Now(), Content: line})
		entities.Add(line)
		m.metrics.line(pc.tool)
		m.emit(Event{Type: EventLine, SessionID: s.ID, Vector: s.Vector.Name, Target: s.Target, Port: s.Port, Tool: pc.tool, Line: line})
		for _, f := range p.Consume(line) {
			s.addFinding(f)
			m.metrics.finding(string(f.Kind), string(f.Severity()))
			m.emitFinding(s, f)
		}
	}

	out, err := m.runner.Run(ctx, tools.Spec{
		Path:       pc.path,
		Args:       pc.args,
		Timeout:    pc.timeout,
		SearchPath: m.resolver.SearchPath(),
	}, onLine)

	rec.State = out.State
	rec.ExitCode = out.ExitCode
	rec.FinishedAt = time.Now()
	rec.Entities = entities.Entities()
	m.logs.Save(rec)
	m.metrics.commandFinished(pc.tool, string(out.State), rec.FinishedAt.Sub(started))
	span.SetAttributes(
		attribute.String("run.state", string(out.State)),
		attribute.Int("run.exit_code", out.ExitCode),
		attribute.Int("run.lines", out.Lines),
		attribute.String("run.severity", string(p.Finalize())),
	)

	fields := logrus.Fields{"state": out.State, "exit_code": out.ExitCode, "lines": out.Lines}
	switch {
	case err != nil:
		rec.Err = err
		e := &Error{Kind: ErrLaunchFailure, Tool: pc.tool, Op: "launch", Cause: err}
		s.appendLine(e.LogLine())
		span.RecordError(err)
		span.SetStatus(codes.Error, "launch failed")
		clog.WithFields(fields).WithError(err).Warn("command launch failed")
		return rec, e
	case out.State == tools.RunTimedOut:
		e := &Error{Kind: ErrTimeout, Tool: pc.tool, Op: "run", Cause: fmt.Errorf("exceeded %s", pc.timeout)}
		s.appendLine(e.LogLine())
		span.SetStatus(codes.Error, "timed out")
		clog.WithFields(fields).Warn("command timed out")
	case out.State == tools.RunCancelled:
		s.appendLine(fmt.Sprintf("[cancelled] %s terminated", pc.tool))
		clog.WithFields(fields).Info("command cancelled")
	default:
		s.appendLine(fmt.Sprintf("[exit] %s exited with code %d", pc.tool, out.ExitCode))
		clog.WithFields(fields).Debug("command finished")
	}
	return rec, nil
}

// finish は結果を集計し、セッションを終端状態にする。結果の計算はセッションごとに1回だけ。
func (m *Manager) finish(s *Session, status Status, err error, runs []*tools.RunRecord) *AttackResult {
	if s.Status().Terminal() {
		return nil
	}
	endedAt := time.Now()
	result := m.agg.Finalize(s, status, err, runs, endedAt)
	if result.Ambiguous {
		ae := &Error{Kind: ErrParseAmbiguous, Tool: runs[len(runs)-1].ToolName, Op: "parse", Hint: "review the raw output"}
		line := ae.LogLine()
		s.appendLine(line)
		result.Output = append(result.Output, line)
		if result.Error == "" {
			result.Error = ae.Error()
		}
	}
	if !s.finish(status, err, endedAt, result) {
		return nil
	}
	m.metrics.sessionFinished(s.Vector.Category, status, result.Success)
	m.emit(Event{Type: EventStatus, SessionID: s.ID, Vector: s.Vector.Name, Target: s.Target, Port: s.Port, Status: status})
	m.emit(Event{Type: EventComplete, SessionID: s.ID, Vector: s.Vector.Name, Target: s.Target, Port: s.Port, Status: status, Result: result})
	s.markDone()
	return result
}

// Cancel はセッションを停止する。実行中のコマンドは強制終了され、残りはスキップされる。
func (m *Manager) Cancel(id string) error {
	s, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Get は ID のセッションを返す。
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List は全セッションを開始時刻の新しい順で返す。
func (m *Manager) List() []*Session {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

// Result は終了したセッションの結果を返す。実行中なら ErrNotFinished。
func (m *Manager) Result(id string) (*AttackResult, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if r := s.Result(); r != nil {
		return r, nil
	}
	return nil, ErrNotFinished
}

// Wait はセッションの終了を待って結果を返す。
func (m *Manager) Wait(ctx context.Context, id string) (*AttackResult, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	select {
	case <-s.Done():
		return s.Result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Purge は終了済みのセッションと実行記録を削除し、削除した数を返す。
func (m *Manager) Purge() int {
	m.mu.Lock()
	var purged []string
	for id, s := range m.sessions {
		if s.Status().Terminal() {
			delete(m.sessions, id)
			purged = append(purged, id)
		}
	}
	m.mu.Unlock()
	for _, id := range purged {
		m.logs.DeleteSession(id)
	}
	return len(purged)
}

// Subscribe はイベントを受け取るチャネルと購読解除関数を返す。
// 受け手が詰まっている間のイベントは捨てられ、セッションは待たされない。
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	ch := make(chan Event, buffer)
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) emit(e Event) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for _, ch := range m.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// emitFinding は資格情報・high 以上の脆弱性・パス・サービスを通知する。
func (m *Manager) emitFinding(s *Session, f parser.Finding) {
	e := Event{SessionID: s.ID, Vector: s.Vector.Name, Target: s.Target, Port: s.Port, Tool: f.Tool}
	switch f.Kind {
	case parser.KindCredential:
		e.Type = EventCredential
	case parser.KindVulnerability:
		if !f.Severity().AtLeast(parser.SeverityHigh) {
			return
		}
		e.Type = EventVulnerability
	case parser.KindPath:
		e.Type = EventPath
	case parser.KindService:
		e.Type = EventService
	default:
		return
	}
	e.Finding = &f
	m.emit(e)
}

// Shutdown は全セッションを停止し、駆動ゴルーチンの終了を待つ。
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, s := range m.List() {
		if s.cancel != nil {
			s.cancel()
		}
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package attack

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics はセッションエンジンの Prometheus メトリクス。
// 既定レジストリは汚さず、専用のレジストリに登録する。
// nil の *Metrics に対する呼び出しは何もしない。
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted  *prometheus.CounterVec
	sessionsFinished *prometheus.CounterVec
	linesTotal       *prometheus.CounterVec
	findingsTotal    *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	commandDuration  *prometheus.HistogramVec
}

// NewMetrics はメトリクスを作成し、専用レジストリに登録する。
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.sessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strikeforge_sessions_started_total",
			Help: "Total number of attack sessions started",
		},
		[]string{"category"},
	)
	m.sessionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strikeforge_sessions_finished_total",
			Help: "Total number of attack sessions that reached a terminal status",
		},
		[]string{"category", "status", "success"},
	)
	m.linesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strikeforge_output_lines_total",
			Help: "Total number of tool output lines streamed",
		},
		[]string{"tool"},
	)
	m.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strikeforge_findings_total",
			Help: "Total number of parsed findings",
		},
		[]string{"kind", "severity"},
	)
	m.activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "strikeforge_active_sessions",
			Help: "Number of sessions currently running",
		},
	)
	m.commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strikeforge_command_duration_seconds",
			Help:    "Tool run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"tool", "state"},
	)

	m.registry.MustRegister(
		m.sessionsStarted,
		m.sessionsFinished,
		m.linesTotal,
		m.findingsTotal,
		m.activeSessions,
		m.commandDuration,
	)
	return m
}

// Registry はメトリクスを登録したレジストリを返す。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler は /metrics 用の HTTP ハンドラーを返す。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) sessionStarted(c Category) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(string(c)).Inc()
	m.activeSessions.Inc()
}

func (m *Metrics) sessionFinished(c Category, s Status, success bool) {
	if m == nil {
		return
	}
	ok := "false"
	if success {
		ok = "true"
	}
	m.sessionsFinished.WithLabelValues(string(c), string(s), ok).Inc()
	m.activeSessions.Dec()
}

func (m *Metrics) line(tool string) {
	if m == nil {
		return
	}
	m.linesTotal.WithLabelValues(tool).Inc()
}

func (m *Metrics) finding(kind, severity string) {
	if m == nil {
		return
	}
	m.findingsTotal.WithLabelValues(kind, severity).Inc()
}

func (m *Metrics) commandFinished(tool, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.commandDuration.WithLabelValues(tool, state).Observe(d.Seconds())
}

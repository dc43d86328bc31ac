package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/gravesugoroku/game"
)

type Metrics struct {
	Connections      prometheus.Gauge
	ActiveTables     prometheus.Gauge
	MessagesReceived prometheus.Counter
	Rounds           *prometheus.CounterVec
	Settlements      *prometheus.CounterVec
	StepsMoved       prometheus.Histogram
	Turns            prometheus.Counter
	Evolutions       prometheus.Counter
	Wins             prometheus.Counter
	TickLatency      *prometheus.HistogramVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ui_connections",
			Help:      "Number of connected table UIs",
		}),
		ActiveTables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tables",
			Help:      "Number of open tables",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Completed rounds by result",
		}, []string{"result"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Settled graves by outcome",
		}, []string{"outcome"}),
		StepsMoved: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_steps",
			Help:      "Steps won by valid rounds",
			Buckets:   prometheus.LinearBuckets(0, 5, 9),
		}),
		Turns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turns started",
		}),
		Evolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evolutions_total",
			Help:      "Corner promotions",
		}),
		Wins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wins_total",
			Help:      "Finished matches",
		}),
		TickLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_seconds",
			Help:      "Table loop phase duration",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}, []string{"phase"}),
	}

	reg.MustRegister(
		m.Connections,
		m.ActiveTables,
		m.MessagesReceived,
		m.Rounds,
		m.Settlements,
		m.StepsMoved,
		m.Turns,
		m.Evolutions,
		m.Wins,
		m.TickLatency,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

// expvar names are process wide; the first monitor to serve owns them.
var publishOnce sync.Once

// NewMonitor registers its metrics on a private registry, so several
// monitors can coexist in one process.
func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
}

func (m *Monitor) Metrics() *Metrics { return m.metrics }

// Handler serves the metrics page and expvar.
func (m *Monitor) Handler() http.Handler {
	// 添加expvar指标
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

func (m *Monitor) StartServer(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	go srv.ListenAndServe()
	return srv
}

func (m *Monitor) IncConnections() {
	m.metrics.Connections.Inc()
}

func (m *Monitor) DecConnections() {
	m.metrics.Connections.Dec()
}

func (m *Monitor) SetActiveTables(count int) {
	m.metrics.ActiveTables.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

// OnTableEvent counts game events.
func (m *Monitor) OnTableEvent(tableID string, ev game.Event) {
	switch ev.Kind {
	case game.EventTurnStarted:
		m.metrics.Turns.Inc()
	case game.EventPieceSettled:
		if p, ok := ev.Payload.(game.PieceSettled); ok {
			label := p.Outcome
			if p.Fell {
				label = "fell"
			}
			m.metrics.Settlements.WithLabelValues(label).Inc()
		}
	case game.EventRoundCompleted:
		if p, ok := ev.Payload.(game.RoundCompleted); ok {
			result := p.Reason
			if p.Valid() {
				result = "valid"
				m.metrics.StepsMoved.Observe(float64(p.TotalSteps))
			}
			m.metrics.Rounds.WithLabelValues(result).Inc()
		}
	case game.EventEvolved:
		m.metrics.Evolutions.Inc()
	case game.EventGameWon:
		m.metrics.Wins.Inc()
	}
}

// ObserveTick records how long a table loop phase took.
func (m *Monitor) ObserveTick(phase string, d time.Duration) {
	m.metrics.TickLatency.WithLabelValues(phase).Observe(d.Seconds())
}

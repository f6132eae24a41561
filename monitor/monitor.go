// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ConnectedClients prometheus.Gauge
	ActiveGames      prometheus.Gauge
	SessionsCreated  prometheus.Counter
	PlayersJoined    prometheus.Counter
	AnswersSubmitted prometheus.Counter
	RoundsRevealed   prometheus.Counter
	GamesEnded       prometheus.Counter
	MessagesReceived *prometheus.CounterVec
	MessageLatency   *prometheus.HistogramVec
	StoreErrors      *prometheus.CounterVec
	StoreLatency     *prometheus.HistogramVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Number of open WebSocket connections",
		}),
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Number of games with at least one connected client",
		}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Game sessions created",
		}),
		PlayersJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_joined_total",
			Help:      "Players seated in a game (reconnects excluded)",
		}),
		AnswersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_submitted_total",
			Help:      "Placements and token skips recorded",
		}),
		RoundsRevealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_revealed_total",
			Help:      "Rounds scored by a DJ",
		}),
		GamesEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Games that reached the ended status",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Client messages by operation and outcome",
		}, []string{"op", "outcome"}),
		MessageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}, []string{"op"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Document store calls that failed",
		}, []string{"op"}),
		StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_latency_seconds",
			Help:      "Document store call latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"op"}),
	}

	reg.MustRegister(
		m.ConnectedClients,
		m.ActiveGames,
		m.SessionsCreated,
		m.PlayersJoined,
		m.AnswersSubmitted,
		m.RoundsRevealed,
		m.GamesEnded,
		m.MessagesReceived,
		m.MessageLatency,
		m.StoreErrors,
		m.StoreLatency,
	)
	return m
}

type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

// NewMonitor registers the metrics on a private registry.
func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	m := &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the server started",
	}, func() float64 { return time.Since(m.startTime).Seconds() }))
	return m
}

func (m *Monitor) Metrics() *Metrics { return m.metrics }

func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Monitor) IncConnectedClients() { m.metrics.ConnectedClients.Inc() }

func (m *Monitor) DecConnectedClients() { m.metrics.ConnectedClients.Dec() }

func (m *Monitor) SetActiveGames(count int) { m.metrics.ActiveGames.Set(float64(count)) }

// ObserveMessage records one handled client message.
func (m *Monitor) ObserveMessage(op string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.metrics.MessagesReceived.WithLabelValues(op, outcome).Inc()
	m.metrics.MessageLatency.WithLabelValues(op).Observe(duration.Seconds())
}

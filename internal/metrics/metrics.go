package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the gateway.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RefreshTotal     *prometheus.CounterVec
	BroadcastsTotal  *prometheus.CounterVec
	ConnectedClients prometheus.Gauge
}

// New registers the gateway metrics with the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry so
// instruments never collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session_gateway",
			Name:      "requests_total",
			Help:      "Requests classified by the edge route classifier, by decision",
		}, []string{"decision"}),

		RefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session_gateway",
			Name:      "token_refresh_total",
			Help:      "Proactive token refresh attempts, by outcome",
		}, []string{"outcome"}),

		BroadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session_gateway",
			Name:      "session_broadcasts_total",
			Help:      "Session events published to the broadcast hub, by type",
		}, []string{"type"}),

		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "session_gateway",
			Name:      "connected_event_clients",
			Help:      "Browser tabs currently subscribed to the event stream",
		}),
	}
}

package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	WSMessages     *prometheus.CounterVec
	WebhookEvents  *prometheus.CounterVec
	PlatformErrors *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of attached agent sessions (0 or 1).",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Agent session lifecycle events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and event.",
		}, []string{"direction", "event"}),
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Voice platform webhook callbacks by endpoint.",
		}, []string{"endpoint"}),
		PlatformErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_errors_total",
			Help:      "Control plane errors by platform and operation.",
		}, []string{"platform", "operation"}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

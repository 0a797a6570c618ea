package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client-side collectors. A nil *Metrics is valid and
// records nothing, so components can take one optionally.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	realtimeState   *prometheus.GaugeVec
	reconnects      prometheus.Counter
	notifications   *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "joltcab",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests issued, by method and status code.",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "joltcab",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API round-trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		realtimeState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "joltcab",
			Subsystem: "realtime",
			Name:      "state",
			Help:      "1 for the current realtime connection state, 0 otherwise.",
		}, []string{"state"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "joltcab",
			Subsystem: "realtime",
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled by the backoff loop.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "joltcab",
			Subsystem: "realtime",
			Name:      "notifications_total",
			Help:      "Notifications received, by origin.",
		}, []string{"origin"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.realtimeState,
		m.reconnects,
		m.notifications,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished API request. code is 0 for
// transport failures.
func (m *Metrics) ObserveRequest(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(method, label).Inc()
	m.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SetRealtimeState marks state as the only active realtime state.
func (m *Metrics) SetRealtimeState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.realtimeState.WithLabelValues(s).Set(v)
	}
}

// ReconnectScheduled counts one scheduled reconnect.
func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// NotificationReceived counts one buffered notification.
func (m *Metrics) NotificationReceived(origin string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(origin).Inc()
}

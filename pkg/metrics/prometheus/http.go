// Package prometheus implements the metrics interfaces on top of the global
// Prometheus registry.
package prometheus

import (
	"strconv"
	"time"

	"github.com/marmos91/dittohttp/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// httpMetrics is the Prometheus implementation of metrics.HTTPMetrics.
type httpMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	rateLimited         prometheus.Counter
	visits              prometheus.Counter
	bytesSent           prometheus.Counter
	rateLimitClients    prometheus.Gauge
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
}

// NewHTTPMetrics creates a new Prometheus-backed HTTPMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewHTTPMetrics() metrics.HTTPMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopHTTPMetrics()
	}

	reg := metrics.GetRegistry()

	return &httpMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittohttp_requests_total",
				Help: "Total number of requests by status code and outcome",
			},
			[]string{"status", "outcome"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittohttp_request_duration_seconds",
				Help: "Duration of requests in seconds, simulated delay included",
				Buckets: []float64{
					0.001, // 1ms
					0.01,  // 10ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
					5.0,   // 5s
					10.0,  // 10s
				},
			},
			[]string{"outcome"},
		),
		rateLimited: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_rate_limited_total",
				Help: "Total number of requests denied by the per-client rate limiter",
			},
		),
		visits: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_visits_total",
				Help: "Total number of visits recorded in the resource counter registry",
			},
		),
		bytesSent: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_bytes_sent_total",
				Help: "Total response bytes written to clients",
			},
		),
		rateLimitClients: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittohttp_rate_limit_clients",
				Help: "Current number of clients tracked by the rate limiter",
			},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittohttp_active_connections",
				Help: "Current number of active connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_connections_accepted_total",
				Help: "Total number of connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_connections_closed_total",
				Help: "Total number of connections closed",
			},
		),
	}
}

func (m *httpMetrics) RecordRequest(status int, outcome string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(strconv.Itoa(status), outcome).Inc()
	m.requestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *httpMetrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

func (m *httpMetrics) RecordVisit() {
	m.visits.Inc()
}

func (m *httpMetrics) RecordBytesSent(bytes int) {
	m.bytesSent.Add(float64(bytes))
}

func (m *httpMetrics) SetRateLimitClients(count int) {
	m.rateLimitClients.Set(float64(count))
}

func (m *httpMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *httpMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *httpMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

package prometheus

import (
	"testing"
	"time"

	"github.com/marmos91/dittohttp/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics(t *testing.T) {
	metrics.InitRegistry()
	m, ok := NewHTTPMetrics().(*httpMetrics)
	require.True(t, ok, "enabled registry must yield the Prometheus implementation")

	m.RecordRequest(200, metrics.OutcomeFile, 1200*time.Millisecond)
	m.RecordRequest(200, metrics.OutcomeFile, 900*time.Millisecond)
	m.RecordRequest(429, metrics.OutcomeRateLimited, time.Millisecond)
	m.RecordRateLimited()
	m.RecordVisit()
	m.RecordVisit()
	m.RecordBytesSent(512)
	m.SetRateLimitClients(3)
	m.RecordConnectionAccepted()
	m.SetActiveConnections(1)
	m.RecordConnectionClosed()
	m.SetActiveConnections(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("200", metrics.OutcomeFile)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("429", metrics.OutcomeRateLimited)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.visits))
	assert.Equal(t, 512.0, testutil.ToFloat64(m.bytesSent))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rateLimitClients))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionsAccepted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionsClosed))

	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "dittohttp_requests_total")
	assert.Contains(t, names, "dittohttp_request_duration_seconds")
}

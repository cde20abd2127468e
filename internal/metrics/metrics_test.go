package metrics

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func getTestMetrics() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry(), zap.NewNop())
}

func getCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, c.Write(metric))
	return metric.GetCounter().GetValue()
}

func getGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, g.Write(metric))
	return metric.GetGauge().GetValue()
}

func TestNewWithRegistry_RegistersUnderNamespace(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry, nil)

	m.IncrementBoardCreated()
	m.RecordLike(true)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
	for _, f := range families {
		assert.Regexp(t, `^iverse_[a-z0-9_]+$`, f.GetName())
	}
}

func TestBusinessCounters(t *testing.T) {
	m := getTestMetrics()

	m.IncrementBoardCreated()
	m.IncrementMatch()
	m.IncrementMessageSent()
	m.IncrementNotificationFailed()
	m.IncrementNotificationFailed()

	assert.Equal(t, 1.0, getCounterValue(t, m.BoardCreatedTotal))
	assert.Equal(t, 1.0, getCounterValue(t, m.MatchesTotal))
	assert.Equal(t, 1.0, getCounterValue(t, m.MessagesSentTotal))
	assert.Equal(t, 2.0, getCounterValue(t, m.NotificationsFailedTotal))
}

func TestLabelledCounters(t *testing.T) {
	m := getTestMetrics()

	m.RecordLike(true)
	m.RecordLike(false)
	m.RecordLike(true)
	m.RecordJoin("already_joined")
	m.RecordRequestHandled("approved")
	m.RecordDemoFallback("backend_error")

	assert.Equal(t, 2.0, getCounterValue(t, m.LikesTotal.WithLabelValues("like")))
	assert.Equal(t, 1.0, getCounterValue(t, m.LikesTotal.WithLabelValues("unlike")))
	assert.Equal(t, 1.0, getCounterValue(t, m.JoinsTotal.WithLabelValues("already_joined")))
	assert.Equal(t, 1.0, getCounterValue(t, m.RequestsHandledTotal.WithLabelValues("approved")))
	assert.Equal(t, 1.0, getCounterValue(t, m.AuthDemoFallbackTotal.WithLabelValues("backend_error")))
}

func TestSetBoardsTotal(t *testing.T) {
	m := getTestMetrics()

	tests := []struct {
		name  string
		count int64
	}{
		{"zero boards", 0},
		{"one board", 1},
		{"many boards", 4200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.SetBoardsTotal(tt.count)
			assert.Equal(t, float64(tt.count), getGaugeValue(t, m.BoardsTotal))
		})
	}
}

func TestWebSocketGauge(t *testing.T) {
	m := getTestMetrics()

	m.IncWebSocketConnections()
	m.IncWebSocketConnections()
	m.DecWebSocketConnections()

	assert.Equal(t, 1.0, getGaugeValue(t, m.WebSocketConnections))
}

func TestUpdateDBStats(t *testing.T) {
	m := getTestMetrics()

	m.UpdateDBStats(sql.DBStats{OpenConnections: 3, InUse: 1, Idle: 2, MaxOpenConnections: 25})
	assert.Equal(t, 3.0, getGaugeValue(t, m.DBConnectionsOpen))
	assert.Equal(t, 25.0, getGaugeValue(t, m.DBConnectionsMax))

	// wrong type is ignored
	m.UpdateDBStats("not stats")
	assert.Equal(t, 3.0, getGaugeValue(t, m.DBConnectionsOpen))
}

func TestRecordExternalAPICall_CountsErrors(t *testing.T) {
	m := getTestMetrics()

	m.RecordExternalAPICall("/rest/v1/board?id=eq.123e4567-e89b-12d3-a456-426614174000", "GET", 200, time.Millisecond, nil)
	m.RecordExternalAPICall("/rest/v1/likes", "POST", 409, time.Millisecond, nil)
	m.RecordExternalAPICall("/auth/v1/token", "POST", 0, time.Millisecond, errors.New("dial tcp: connection refused"))

	assert.Equal(t, 1.0, getCounterValue(t, m.ExternalAPIRequestsTotal.WithLabelValues("/rest/v1/board", "GET", "200")))
	assert.Equal(t, 1.0, getCounterValue(t, m.ExternalAPIErrors.WithLabelValues("/rest/v1/likes", "conflict")))
	assert.Equal(t, 1.0, getCounterValue(t, m.ExternalAPIErrors.WithLabelValues("/auth/v1/token", "connection_refused")))
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/rest/v1/board", "/rest/v1/board"},
		{"/rest/v1/board?id=eq.1", "/rest/v1/board"},
		{"/storage/avatars/123e4567-e89b-12d3-a456-426614174000-1.png", "/storage/avatars/{id}-1.png"},
		{"/views/demo-123e4567-e89b-12d3-a456-426614174000", "/views/{id}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeEndpoint(tt.in), tt.in)
	}
}

func TestCategorizeStatus(t *testing.T) {
	assert.Equal(t, "2xx", categorizeStatus(201))
	assert.Equal(t, "3xx", categorizeStatus(304))
	assert.Equal(t, "4xx", categorizeStatus(409))
	assert.Equal(t, "5xx", categorizeStatus(504))
	assert.Equal(t, "unknown", categorizeStatus(0))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncrementBoardCreated()
		m.RecordLike(true)
		m.RecordHTTPRequest("GET", "/api/boards", 200, time.Millisecond)
		m.RecordExternalAPICall("/rest/v1/board", "GET", 500, time.Millisecond, nil)
		m.RecordDemoFallback("backend_unconfigured")
	})
}

func TestSafeExecute_RecoversPanic(t *testing.T) {
	m := getTestMetrics()

	assert.NotPanics(t, func() {
		m.safeExecute("boom", func() { panic("boom") })
	})
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(func() int { return 3 })

	m.RefreshCompleted("cam-1", "ok", 120*time.Millisecond)
	m.RefreshCompleted("cam-1", "ok", 80*time.Millisecond)
	m.RefreshCompleted("cam-1", "error", time.Second)
	m.ChartRendered("pedestrians", "png")
	m.LogUploaded()
	m.WebsocketClients.Add(2)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.refreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.refreshes.WithLabelValues("error")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.renders.WithLabelValues("pedestrians", "png")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.uploads))
	assert.Equal(t, 1, promtest.CollectAndCount(m.refreshLatency))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(func() int { return 5 })
	m.RefreshCompleted("cam-1", "superseded", time.Millisecond)
	m.WebsocketClients.Add(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `dashboard_refreshes_total{outcome="superseded"} 1`)
	assert.Contains(t, text, "dashboard_active_views 5")
	assert.Contains(t, text, "dashboard_websocket_clients 1")
	assert.Contains(t, text, "dashboard_refresh_duration_seconds_count 1")
}

func TestMetrics_WithoutViews(t *testing.T) {
	m := New(nil)
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		assert.NotEqual(t, "dashboard_active_views", f.GetName())
	}
}

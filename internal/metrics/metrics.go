// Package metrics exposes dashboard counters to Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors on a private registry.
type Metrics struct {
	// WebsocketClients is the number of connected push clients.
	WebsocketClients atomic.Int64

	refreshes      *prometheus.CounterVec
	refreshLatency prometheus.Histogram
	renders        *prometheus.CounterVec
	uploads        prometheus.Counter

	registry *prometheus.Registry
}

// New creates the collectors. views reports the number of live camera views
// and may be nil.
func New(views func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_refreshes_total",
			Help: "Chart refreshes by outcome",
		}, []string{"outcome"}),
		refreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_refresh_duration_seconds",
			Help:    "Time from refresh start to publish or failure",
			Buckets: prometheus.DefBuckets,
		}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_chart_renders_total",
			Help: "Chart images rendered by chart and format",
		}, []string{"chart", "format"}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_log_uploads_total",
			Help: "Objects logs uploaded through the offline view",
		}),
	}

	m.registry.MustRegister(m.refreshes, m.refreshLatency, m.renders, m.uploads)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "dashboard_websocket_clients",
			Help: "Connected websocket clients",
		},
		func() float64 { return float64(m.WebsocketClients.Load()) },
	))

	if views != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "dashboard_active_views",
				Help: "Camera views held in memory",
			},
			func() float64 { return float64(views()) },
		))
	}

	return m
}

// RefreshCompleted records the outcome and duration of a chart refresh.
func (m *Metrics) RefreshCompleted(cameraID, outcome string, elapsed time.Duration) {
	m.refreshes.WithLabelValues(outcome).Inc()
	m.refreshLatency.Observe(elapsed.Seconds())
}

// ChartRendered counts one rendered chart image.
func (m *Metrics) ChartRendered(chart, format string) {
	m.renders.WithLabelValues(chart, format).Inc()
}

// LogUploaded counts one stored upload.
func (m *Metrics) LogUploaded() {
	m.uploads.Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

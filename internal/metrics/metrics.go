// Package metrics exposes Prometheus collectors for the history service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for history loads and views.
type Metrics struct {
	loadsTotal     *prometheus.CounterVec
	loadDuration   *prometheus.HistogramVec
	sessionExpired prometheus.Counter
	viewsActive    prometheus.Gauge
	apiHealthy     prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *Metrics
)

// New returns the process-wide metrics collector.
func New() *Metrics {
	metricsOnce.Do(func() {
		metricsInst = &Metrics{
			loadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "prediction_history_loads_total",
					Help: "Total number of history loads by outcome",
				},
				[]string{"outcome"},
			),
			loadDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "prediction_history_load_duration_seconds",
					Help:    "Duration of history requests to the prediction API",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"outcome"},
			),
			sessionExpired: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "prediction_history_session_expired_total",
					Help: "Total number of loads rejected with 401",
				},
			),
			viewsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "prediction_history_views_active",
					Help: "Number of currently mounted history views",
				},
			),
			apiHealthy: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "prediction_history_api_healthy",
					Help: "Prediction API reachability (1 = reachable, 0 = unreachable)",
				},
			),
		}
	})
	return metricsInst
}

// RecordLoad records a finished load attempt.
// Loads that never reached the API are counted but not timed.
func (m *Metrics) RecordLoad(outcome string, duration time.Duration, requested bool) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.loadsTotal.WithLabelValues(outcome).Inc()
	if requested {
		m.loadDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

// RecordSessionExpired records a 401 from the API.
func (m *Metrics) RecordSessionExpired() {
	if m == nil {
		return
	}
	m.sessionExpired.Inc()
}

// SetViewsActive updates the mounted views gauge.
func (m *Metrics) SetViewsActive(n int) {
	if m == nil {
		return
	}
	m.viewsActive.Set(float64(n))
}

// SetAPIHealth updates the API health gauge.
func (m *Metrics) SetAPIHealth(healthy bool) {
	if m == nil {
		return
	}
	if healthy {
		m.apiHealthy.Set(1)
	} else {
		m.apiHealthy.Set(0)
	}
}

// Package metrics exposes explorer activity to Prometheus
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recera/patchview/pkg/drag"
)

const namespace = "patchview"

// Metrics is a registry of explorer collectors. It implements the drag,
// refresh and live observer interfaces.
type Metrics struct {
	reg *prometheus.Registry

	pointerEvents  *prometheus.CounterVec
	dragSessions   prometheus.Counter
	activeDrags    prometheus.Gauge
	refreshes      *prometheus.CounterVec
	refreshSeconds prometheus.Histogram
	liveSessions   prometheus.Gauge
}

// New creates the collectors on a fresh registry. withRuntime adds the Go
// and process collectors.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		pointerEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pointer_events_total",
				Help:      "Pointer events seen by drag sessions by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		dragSessions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drag_sessions_total",
			Help:      "Drag sessions started",
		}),
		activeDrags: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drag_sessions_active",
			Help:      "Drag sessions currently in progress",
		}),
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_cycles_total",
				Help:      "Refresh cycles by result",
			},
			[]string{"result"},
		),
		refreshSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time spent building one render update",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		liveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Open live sessions",
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// PointerProcessed implements drag.Observer
func (m *Metrics) PointerProcessed(kind drag.Kind) {
	m.pointerEvents.WithLabelValues(kind.String(), "processed").Inc()
}

// PointerDropped implements drag.Observer
func (m *Metrics) PointerDropped() {
	m.pointerEvents.WithLabelValues(drag.Move.String(), "dropped").Inc()
}

// SessionStarted implements drag.Observer
func (m *Metrics) SessionStarted() {
	m.dragSessions.Inc()
	m.activeDrags.Inc()
}

// SessionEnded implements drag.Observer
func (m *Metrics) SessionEnded() {
	m.activeDrags.Dec()
}

// RefreshCompleted implements refresh.Observer
func (m *Metrics) RefreshCompleted(fallback bool, elapsed time.Duration) {
	result := "ok"
	if fallback {
		result = "fallback"
	}
	m.refreshes.WithLabelValues(result).Inc()
	m.refreshSeconds.Observe(elapsed.Seconds())
}

// SessionOpened implements live.Observer
func (m *Metrics) SessionOpened() {
	m.liveSessions.Inc()
}

// SessionClosed implements live.Observer
func (m *Metrics) SessionClosed() {
	m.liveSessions.Dec()
}

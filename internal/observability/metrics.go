// Package observability provides Prometheus instrumentation for the
// detection engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors, registered on a
// dedicated registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	TicksTotal      prometheus.Counter
	ThrottledTicks  prometheus.Counter
	SuppressedTicks prometheus.Counter
	Detections      *prometheus.CounterVec
	Confidence      prometheus.Gauge
	BreathingSample prometheus.Gauge
	AudioLevel      prometheus.Gauge
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "apnea_ticks_total",
			Help: "Total analysis ticks executed.",
		}),
		ThrottledTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "apnea_throttled_ticks_total",
			Help: "Tick calls served from the cached event due to throttling.",
		}),
		SuppressedTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "apnea_suppressed_ticks_total",
			Help: "Ticks whose buffers were left unmodified due to ambient noise.",
		}),
		Detections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "apnea_detections_total",
			Help: "Detection events by pattern classification.",
		}, []string{"pattern"}),
		Confidence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "apnea_confidence",
			Help: "Most recent post-hysteresis confidence value.",
		}),
		BreathingSample: factory.NewGauge(prometheus.GaugeOpts{
			Name: "apnea_breathing_sample",
			Help: "Most recent breathing-band energy sample.",
		}),
		AudioLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "apnea_audio_level",
			Help: "Capture level of the most recent analyzed frame, 0-100.",
		}),
	}
}

// Registry returns the registry holding the engine collectors, for
// exposing via an HTTP handler or gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

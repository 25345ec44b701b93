package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tick outcomes recorded by Telemetry.
const (
	OutcomeOK                 = "ok"
	OutcomeMetricsUnavailable = "metrics_unavailable"
	OutcomeEncodingFailed     = "encoding_failed"
	OutcomeRenderFailed       = "render_failed"
)

// Telemetry exposes the sampling loop's own health as Prometheus metrics.
// It uses a private registry so several instances can coexist in tests.
// All methods are safe on a nil receiver.
type Telemetry struct {
	registry     *prometheus.Registry
	ticks        *prometheus.CounterVec
	memoryUsed   prometheus.Gauge
	seriesPoints prometheus.Gauge
	tickDuration prometheus.Histogram
	handler      http.Handler
}

// NewTelemetry creates and registers the loop metrics plus the Go runtime
// and process collectors.
func NewTelemetry() *Telemetry {
	t := &Telemetry{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ramwatch_ticks_total",
			Help: "Sampling loop ticks by outcome.",
		}, []string{"outcome"}),
		memoryUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ramwatch_memory_used_percent",
			Help: "Percent of host memory in use at the last successful tick.",
		}),
		seriesPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ramwatch_series_points",
			Help: "Number of points accumulated in the time series.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ramwatch_tick_duration_seconds",
			Help:    "Time spent sampling, encoding and rendering per tick.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}

	t.registry.MustRegister(
		t.ticks,
		t.memoryUsed,
		t.seriesPoints,
		t.tickDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, outcome := range []string{OutcomeOK, OutcomeMetricsUnavailable, OutcomeEncodingFailed, OutcomeRenderFailed} {
		t.ticks.WithLabelValues(outcome)
	}
	t.handler = promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
	return t
}

// ObserveTick records the outcome and processing time of one tick.
func (t *Telemetry) ObserveTick(outcome string, elapsed time.Duration) {
	if t == nil {
		return
	}
	t.ticks.WithLabelValues(outcome).Inc()
	t.tickDuration.Observe(elapsed.Seconds())
}

// SetMemoryPercent records the latest percent used.
func (t *Telemetry) SetMemoryPercent(percent float64) {
	if t == nil {
		return
	}
	t.memoryUsed.Set(percent)
}

// SetSeriesLength records the series length.
func (t *Telemetry) SetSeriesLength(n int) {
	if t == nil {
		return
	}
	t.seriesPoints.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (t *Telemetry) Handler() http.Handler {
	if t == nil {
		return http.NotFoundHandler()
	}
	return t.handler
}

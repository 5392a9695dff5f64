package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service
type Metrics struct {
	registry *prometheus.Registry

	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	FallbacksTotal     *prometheus.CounterVec
	ExportErrors       *prometheus.CounterVec
	AppsStored         prometheus.Gauge
	GenerationActive   prometheus.Gauge
}

// New creates metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GenerationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nbyapp_generations_total",
				Help: "Generations by service and outcome",
			},
			[]string{"service", "outcome"},
		),
		GenerationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nbyapp_generation_duration_seconds",
				Help:    "Wall time of a generation",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"service"},
		),
		FallbacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nbyapp_provider_fallbacks_total",
				Help: "Generations that fell back to the mock generator",
			},
			[]string{"service"},
		),
		ExportErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nbyapp_export_errors_total",
				Help: "Failed exports of generated files",
			},
			[]string{"service"},
		),
		AppsStored: f.NewGauge(prometheus.GaugeOpts{
			Name: "nbyapp_apps_stored",
			Help: "Apps in the store as of the last listing",
		}),
		GenerationActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "nbyapp_generation_active",
			Help: "1 while a generation is running",
		}),
	}
}

// ObserveGeneration records one finished generation
func (m *Metrics) ObserveGeneration(service, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(service, outcome).Inc()
	m.GenerationDuration.WithLabelValues(service).Observe(d.Seconds())
}

// IncFallback counts a fallback to the mock generator
func (m *Metrics) IncFallback(service string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(service).Inc()
}

// IncExportError counts a failed export
func (m *Metrics) IncExportError(service string) {
	if m == nil {
		return
	}
	m.ExportErrors.WithLabelValues(service).Inc()
}

// SetActive flips the active generation gauge
func (m *Metrics) SetActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.GenerationActive.Set(1)
		return
	}
	m.GenerationActive.Set(0)
}

// SetAppsStored records the store size
func (m *Metrics) SetAppsStored(n int) {
	if m == nil {
		return
	}
	m.AppsStored.Set(float64(n))
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

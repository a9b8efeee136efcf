// Package metrics holds the prometheus collectors of the router. Every App
// owns its own prometheus.Registry so tests and multiple instances never
// share global state.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name unless configured otherwise.
const DefaultNamespace = "custom_logic_router"

// Failure kinds reported by custom_logic_errors_total.
const (
	KindError   = "error"
	KindPanic   = "panic"
	KindTimeout = "timeout"
)

var objectives = map[float64]float64{0.5: 0.05, 0.75: .025, 0.9: 0.01, 0.95: .005, 0.99: 0.001}

// Metrics is the set of collectors recorded by the router.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter     *prometheus.CounterVec
	RequestSummary     *prometheus.SummaryVec
	CustomLogicSummary *prometheus.SummaryVec
	CustomLogicErrors  *prometheus.CounterVec
	Routes             prometheus.Gauge
}

// New registers the router collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		RequestSummary: factory.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "http_request_duration_seconds",
			Help:       "HTTP request latency by route.",
			Objectives: objectives,
		}, []string{"route"}),
		CustomLogicSummary: factory.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "custom_logic_duration_seconds",
			Help:       "Time spent inside custom logic handlers.",
			Objectives: objectives,
		}, []string{"name", "trigger"}),
		CustomLogicErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "custom_logic_errors_total",
			Help:      "Failed custom logic calls by kind.",
		}, []string{"name", "trigger", "kind"}),
		Routes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "routes",
			Help:      "Number of custom logic routes served.",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, code string, elapsed time.Duration) {
	m.RequestCounter.WithLabelValues(route, code).Inc()
	m.RequestSummary.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveCall records one custom logic invocation. kind is empty on success.
func (m *Metrics) ObserveCall(name, trigger, kind string, elapsed time.Duration) {
	m.CustomLogicSummary.WithLabelValues(name, trigger).Observe(elapsed.Seconds())
	if kind != "" {
		m.CustomLogicErrors.WithLabelValues(name, trigger, kind).Inc()
	}
}

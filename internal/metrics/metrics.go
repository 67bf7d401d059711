// Package metrics exposes Prometheus metrics for the HTTP server, the viewer
// and the reload machinery on a private registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reload results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight prometheus.Gauge
	reqTotal *prometheus.CounterVec
	reqDur   *prometheus.HistogramVec

	rendersTotal         *prometheus.CounterVec
	lookupsTotal         *prometheus.CounterVec
	configReloadsTotal   *prometheus.CounterVec
	configVersion        prometheus.Gauge
	templateReloadsTotal *prometheus.CounterVec
	indexEventsTotal     *prometheus.CounterVec
}

// New returns a fresh registry + standard collectors + HTTP metrics
// safe labels only (method, route, status) to avoid path/cardinality explosions
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		rendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "myfview_renders_total",
			Help: "Viewer responses by negotiated format and status",
		}, []string{"format", "status"}),
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "myfview_lookups_total",
			Help: "Record lookups by result (found, not_found, invalid, error)",
		}, []string{"result"}),
		configReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "myfview_config_reloads_total",
			Help: "Config file reload attempts by result",
		}, []string{"result"}),
		configVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "myfview_config_version",
			Help: "Version of the active config snapshot",
		}),
		templateReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "myfview_template_reloads_total",
			Help: "Template reload attempts by result",
		}, []string{"result"}),
		indexEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "myfview_index_events_total",
			Help: "Directory index changes by kind (created, updated, deleted)",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.rendersTotal,
		m.lookupsTotal,
		m.configReloadsTotal,
		m.configVersion,
		m.templateReloadsTotal,
		m.indexEventsTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// ObserveLookup counts one record lookup.
func (m *ServerMetrics) ObserveLookup(result string) {
	m.lookupsTotal.WithLabelValues(result).Inc()
}

// ObserveRender counts one viewer response.
func (m *ServerMetrics) ObserveRender(format string, status int) {
	m.rendersTotal.WithLabelValues(format, strconv.Itoa(status)).Inc()
}

func (m *ServerMetrics) IncConfigReload(result string) {
	m.configReloadsTotal.WithLabelValues(result).Inc()
}

func (m *ServerMetrics) SetConfigVersion(v uint64) {
	m.configVersion.Set(float64(v))
}

func (m *ServerMetrics) IncTemplateReload(result string) {
	m.templateReloadsTotal.WithLabelValues(result).Inc()
}

func (m *ServerMetrics) IncIndexEvent(kind string) {
	m.indexEventsTotal.WithLabelValues(kind).Inc()
}

// RegisterGaugeFunc exposes a value sampled at scrape time, e.g. the number
// of connected SSE clients.
func (m *ServerMetrics) RegisterGaugeFunc(name, help string, fn func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	}, fn))
}

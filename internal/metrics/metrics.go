package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the dashboard exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queryDuration   *prometheus.HistogramVec
	filteredRows    prometheus.Gauge
	rowsLoaded      prometheus.Counter
	rowsSkipped     prometheus.Counter
}

// New registers the dashboard collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_query_duration_seconds",
			Help:    "Time spent recomputing a dashboard view.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"query"}),
		filteredRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_filtered_rows",
			Help: "Rows selected by the most recent dashboard query.",
		}),
		rowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dataset_rows_loaded_total",
			Help: "CSV rows parsed into the in-memory table.",
		}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dataset_rows_skipped_total",
			Help: "Malformed CSV rows dropped while loading.",
		}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.queryDuration, m.filteredRows, m.rowsLoaded, m.rowsSkipped)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

func (m *Metrics) ObserveQuery(query string, rows int, duration time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(normalizeLabel(query)).Observe(duration.Seconds())
	m.filteredRows.Set(float64(rows))
}

func (m *Metrics) AddLoaded(loaded, skipped int) {
	if m == nil {
		return
	}
	m.rowsLoaded.Add(float64(loaded))
	m.rowsSkipped.Add(float64(skipped))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// Package metrics exposes the daemon's Prometheus surface: cycle/report
// counters, sink-pool saturation, source-ES request latency, plus the
// health server's own HTTP request metrics.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests against the health/metrics server.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests against the health/metrics server.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// MonitorCyclesTotal counts completed monitoring-loop iterations, one
	// label series per source cluster.
	MonitorCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_cycles_total",
			Help: "Total number of completed monitoring cycles.",
		},
		[]string{"cluster_name"},
	)

	// MonitorCycleErrorsTotal counts cycles that returned (or panicked
	// into) an error.
	MonitorCycleErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_cycle_errors_total",
			Help: "Total number of monitoring cycles that failed.",
		},
		[]string{"cluster_name"},
	)

	// IncidentsWrittenTotal counts incident documents written to the
	// sink, one series per (cluster_name, err_title).
	IncidentsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidents_written_total",
			Help: "Total number of incident records written to the sink.",
		},
		[]string{"cluster_name", "err_title"},
	)

	// UrgentBreachesTotal counts urgent-threshold breaches detected, one
	// series per (cluster_name, metric_name).
	UrgentBreachesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "urgent_breaches_total",
			Help: "Total number of urgent threshold breaches detected.",
		},
		[]string{"cluster_name", "metric_name"},
	)

	// ReportRunsTotal counts completed report runs, one series per
	// (cluster_name, report_kind).
	ReportRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_runs_total",
			Help: "Total number of completed report runs.",
		},
		[]string{"cluster_name", "report_kind"},
	)

	// SinkPoolInUse reports the number of sink connections currently
	// borrowed from the pool: one gauge for the whole process, since the
	// pool itself is a process-wide singleton.
	SinkPoolInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sink_pool_in_use",
			Help: "Number of sink connection-pool permits currently borrowed.",
		},
	)

	// SourceRequestDurationSeconds times each source-ES operation, one
	// series per (cluster_name, operation).
	SourceRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_request_duration_seconds",
			Help:    "Duration of source-ES requests, per cluster and operation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cluster_name", "operation"},
	)
)

var initMetricsOnce sync.Once
var registry *prometheus.Registry

// InitMetrics initializes and registers the full Prometheus registry.
func InitMetrics() *prometheus.Registry {
	initMetricsOnce.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(
			httpRequestsTotal,
			httpRequestDurationSeconds,
			MonitorCyclesTotal,
			MonitorCycleErrorsTotal,
			IncidentsWrittenTotal,
			UrgentBreachesTotal,
			ReportRunsTotal,
			SinkPoolInUse,
			SourceRequestDurationSeconds,
		)

		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		log.Info().Msg("Prometheus metrics initialized.")
	})
	return registry
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// HTTPMetricsMiddleware collects HTTP request metrics for the health
// server's own routes.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lw, r)

		duration := time.Since(start).Seconds()
		method := r.Method
		path := r.URL.Path
		status := strconv.Itoa(lw.statusCode)

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDurationSeconds.WithLabelValues(method, path).Observe(duration)
	})
}

// loggingResponseWriter is a wrapper to capture the HTTP status code.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

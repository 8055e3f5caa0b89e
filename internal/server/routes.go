package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/crlsmrls/esmonitor/internal/config"
	"github.com/crlsmrls/esmonitor/internal/metrics"
)

// setupRoutes configures the health/metrics server's routes. The daemon's
// actual work happens off the request path, in the monitor and report loops.
func setupRoutes(router *chi.Mux, cfg *config.Config, reg *prometheus.Registry) {
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Handle(cfg.MetricsPath, metrics.MetricsHandler(reg))
}

// Command esmonitor runs the Elasticsearch monitoring and alerting daemon:
// it loads its domain configuration, builds the sink connection pool, and
// runs the monitoring/report scheduler alongside a health/metrics server
// until an OS shutdown signal arrives.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/crlsmrls/esmonitor/internal/config"
	"github.com/crlsmrls/esmonitor/internal/logger"
	"github.com/crlsmrls/esmonitor/internal/metrics"
	"github.com/crlsmrls/esmonitor/internal/scheduler"
	"github.com/crlsmrls/esmonitor/internal/server"
	"github.com/crlsmrls/esmonitor/internal/sinkclient"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	logger.InitLogger(cfg.LogLevel, os.Stdout)

	domain, err := config.LoadDomain(os.LookupEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load domain configuration")
	}

	sinkPool, err := sinkclient.NewPool(domain.System.MonitorES)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build sink connection pool")
	}

	sched := scheduler.New(domain, sinkPool, log.Logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	schedulerDone := make(chan error, 1)
	go func() {
		schedulerDone <- sched.Run(ctx)
	}()

	reg := metrics.InitMetrics()
	httpServer := server.New(cfg, os.Stdout, reg)
	if err := httpServer.Start(); err != nil {
		log.Error().Err(err).Msg("health/metrics server stopped with error")
	}

	cancel()
	if err := <-schedulerDone; err != nil {
		log.Error().Err(err).Msg("scheduler stopped with error")
	}
}

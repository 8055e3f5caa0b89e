package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crlsmrls/esmonitor/internal/logger"
	"github.com/crlsmrls/esmonitor/internal/metrics"
	"github.com/crlsmrls/esmonitor/internal/model"
	"github.com/crlsmrls/esmonitor/internal/notify"
	"github.com/crlsmrls/esmonitor/internal/report/cronsched"
)

// Loop drives one (cluster, ReportKind) report task: wait for next_run,
// aggregate, render, fan out, repeat (§4.8).
type Loop struct {
	aggregator *Aggregator
	chart      ChartRenderer
	fanout     *notify.Fanout
	schedule   cronsched.Schedule
	kind         model.ReportKind
	clusterName  string
	imgPath      string
	templatePath string
	log          zerolog.Logger

	// now defaults to time.Now; overridden in tests.
	now func() time.Time
}

// Config bundles Loop's construction-time dependencies.
type Config struct {
	Aggregator  *Aggregator
	Chart       ChartRenderer
	Fanout      *notify.Fanout
	Schedule    cronsched.Schedule
	Kind         model.ReportKind
	ClusterName  string
	ImgPath      string
	TemplatePath string
	Log          zerolog.Logger
}

// New builds a Loop from cfg. A nil Chart defaults to NopChartRenderer.
func New(cfg Config) *Loop {
	chart := cfg.Chart
	if chart == nil {
		chart = NopChartRenderer{}
	}
	return &Loop{
		aggregator:  cfg.Aggregator,
		chart:       chart,
		fanout:      cfg.Fanout,
		schedule:    cfg.Schedule,
		kind:        cfg.Kind,
		clusterName:  cfg.ClusterName,
		imgPath:      cfg.ImgPath,
		templatePath: cfg.TemplatePath,
		log:          cfg.Log.With().Str("cluster", cfg.ClusterName).Str("report_kind", cfg.Kind.String()).Logger(),
		now:          time.Now,
	}
}

// Run loops forever: compute next_run, sleep, fire, repeat. Returns only
// when ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	for {
		nextRun := l.schedule.NextRun(l.now())
		wait := time.Until(nextRun)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := l.fire(ctx); err != nil {
			l.log.Error().Err(err).Msg("report run failed")
		}
	}
}

// fire executes one complete report cycle (§4.8 steps 3-7). Reports filter
// to the node-connection-failure category, matching the original
// report_service_impl's hard-coded err_title.keyword term; the other
// categories (cluster-health, urgent-alarm) are not rolled up into reports.
func (l *Loop) fire(ctx context.Context) error {
	ctx, log := logger.WithCorrelationID(ctx, l.log, uuid.New().String())

	now := time.Now().UTC()
	window := model.WindowFor(l.kind, now)

	result, err := l.aggregator.Run(ctx, l.clusterName, model.ErrTitleNodeConnFailure, window, l.kind.CalendarInterval())
	if err != nil {
		return err
	}

	chartPath, err := l.chart.Render(ctx, l.imgPath, result.Buckets)
	if err != nil {
		log.Warn().Err(err).Msg("chart rendering failed, composing report without it")
		chartPath = l.imgPath
	}

	msg := notify.ReportSummary{
		ClusterName:      l.clusterName,
		Kind:             l.kind.String(),
		Count:            result.Count,
		AlarmPeriodCount: result.AlarmPeriodCount,
		ChartPath:        chartPath,
		TemplatePath:     l.templatePath,
	}
	if err := l.fanout.Send(ctx, msg); err != nil {
		log.Error().Err(err).Msg("failed to notify report summary")
		return err
	}
	metrics.ReportRunsTotal.WithLabelValues(l.clusterName, l.kind.String()).Inc()
	return nil
}

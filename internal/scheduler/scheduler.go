// Package scheduler is the Monitoring Engine's entrypoint: per configured
// source cluster it launches one monitoring task and up to four report
// tasks, all sharing one shutdown context (SPEC_FULL.md §5).
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/crlsmrls/esmonitor/internal/collector"
	"github.com/crlsmrls/esmonitor/internal/config"
	"github.com/crlsmrls/esmonitor/internal/esclient"
	"github.com/crlsmrls/esmonitor/internal/incident"
	"github.com/crlsmrls/esmonitor/internal/model"
	"github.com/crlsmrls/esmonitor/internal/monitor"
	"github.com/crlsmrls/esmonitor/internal/notify"
	"github.com/crlsmrls/esmonitor/internal/notify/chat"
	"github.com/crlsmrls/esmonitor/internal/notify/email"
	"github.com/crlsmrls/esmonitor/internal/notify/teamchat"
	"github.com/crlsmrls/esmonitor/internal/report"
	"github.com/crlsmrls/esmonitor/internal/report/cronsched"
	"github.com/crlsmrls/esmonitor/internal/sinkclient"
	"github.com/crlsmrls/esmonitor/internal/urgent"
)

// monitorInterval is the Monitoring Loop's fixed cadence (§4.7/§5).
const monitorInterval = 30 * time.Second

// Scheduler builds and runs one monitoring task and up to four report tasks
// per configured source cluster, against a shared sink connection pool.
type Scheduler struct {
	domain   config.Domain
	sinkPool *sinkclient.Pool
	log      zerolog.Logger
}

// New builds a Scheduler from the loaded domain configuration and a shared
// sink connection pool.
func New(domain config.Domain, sinkPool *sinkclient.Pool, log zerolog.Logger) *Scheduler {
	return &Scheduler{domain: domain, sinkPool: sinkPool, log: log}
}

// Run builds the notification fan-out and every per-cluster task, then
// blocks until ctx is cancelled or a task returns a fatal error.
func (s *Scheduler) Run(ctx context.Context) error {
	fanout, closeFanout, err := s.buildFanout()
	if err != nil {
		return fmt.Errorf("scheduler: build notification fan-out: %w", err)
	}
	defer closeFanout()

	eg, egCtx := errgroup.WithContext(ctx)

	for _, clusterDesc := range s.domain.Clusters.Clusters {
		clusterDesc := clusterDesc

		esClient, err := esclient.New(clusterDesc)
		if err != nil {
			// Reported through the group so that tasks already started for
			// earlier clusters are cancelled and waited for.
			buildErr := fmt.Errorf("scheduler: build source client for %q: %w", clusterDesc.ClusterName, err)
			eg.Go(func() error { return buildErr })
			break
		}

		monitorLoop := monitor.New(monitor.Config{
			Cluster:    esClient,
			SinkPool:   s.sinkPool,
			Collector:  collector.New(esClient, s.log),
			Evaluator:  urgent.New(s.sinkPool, s.log),
			Incidents:  incident.New(s.sinkPool, clusterDesc.ErrLogIndexPattern, s.log),
			Fanout:     fanout,
			Thresholds:   s.domain.Urgent.Urgent,
			IndexNames:   indexNamesFor(s.domain.IndexWatch, clusterDesc.ClusterName),
			TemplatePath: s.domain.HTMLTemplatePath,
			Interval:     monitorInterval,
			DevMode:      s.domain.System.UseCase.UseCase != "prod",
			Log:          s.log,
		})
		eg.Go(func() error {
			monitorLoop.Run(egCtx)
			return nil
		})

		aggregator := report.NewAggregator(s.sinkPool, clusterDesc.ErrLogIndexPattern, s.log)
		for _, reportLoop := range s.reportTasks(clusterDesc.ClusterName, aggregator, fanout) {
			reportLoop := reportLoop
			eg.Go(func() error {
				reportLoop.Run(egCtx)
				return nil
			})
		}
	}

	return eg.Wait()
}

// indexNamesFor returns every index name watched for per-index metric
// collection on the named cluster.
func indexNamesFor(watch model.IndexWatchConfig, clusterName string) []string {
	var names []string
	for _, w := range watch.Index {
		if w.ClusterName == clusterName {
			names = append(names, w.IndexName)
		}
	}
	return names
}

// reportSection bundles one report kind with its configured TOML section.
type reportSection struct {
	kind model.ReportKind
	cfg  model.ReportSection
}

// reportTasks builds one report.Loop per enabled section, skipping (and
// logging) any section whose cron_schedule fails to parse.
func (s *Scheduler) reportTasks(clusterName string, aggregator *report.Aggregator, fanout *notify.Fanout) []*report.Loop {
	sections := []reportSection{
		{model.ReportDay, s.domain.System.DailyReport},
		{model.ReportWeek, s.domain.System.WeeklyReport},
		{model.ReportMonth, s.domain.System.MonthlyReport},
		{model.ReportYear, s.domain.System.YearlyReport},
	}

	var loops []*report.Loop
	for _, section := range sections {
		if !section.cfg.Enabled {
			continue
		}

		schedule, err := cronsched.Parse(section.cfg.CronSchedule)
		if err != nil {
			s.log.Error().Err(err).Str("cluster", clusterName).Str("report_kind", section.kind.String()).
				Msg("invalid report cron_schedule, skipping report task")
			continue
		}

		loops = append(loops, report.New(report.Config{
			Aggregator:   aggregator,
			Fanout:       fanout,
			Schedule:     schedule,
			Kind:         section.kind,
			ClusterName:  clusterName,
			ImgPath:      section.cfg.ImgPath,
			TemplatePath: s.domain.ReportHTMLTemplatePath,
			Log:          s.log,
		}))
	}
	return loops
}

// buildFanout wires the three notification channels from the loaded domain
// configuration: dev mode (usecase.use_case != "prod") dispatches to email
// only, using the dev-receiver list.
func (s *Scheduler) buildFanout() (*notify.Fanout, func(), error) {
	mode := notify.ModeProd
	receivers := s.domain.Receivers.Receivers
	if s.domain.System.UseCase.UseCase != "prod" {
		mode = notify.ModeDev
		receivers = s.domain.ReceiversDev.Receivers
	}

	recipients := make([]string, 0, len(receivers))
	for _, r := range receivers {
		recipients = append(recipients, r.EmailID)
	}

	smtp := s.domain.System.SMTP
	db, err := sqlx.Open(smtp.DriverName, smtp.DataSourceName)
	if err != nil {
		return nil, nil, fmt.Errorf("scheduler: open email stored-procedure connection: %w", err)
	}

	fanout := &notify.Fanout{
		Mode:     mode,
		Chat:     chat.New(s.domain.System.Telegram.BotToken, s.domain.System.Telegram.ChatID, s.log),
		TeamChat: teamchat.New(s.domain.System.Slack.BotToken, s.domain.System.Slack.ChannelID),
		Email:    email.New(db, smtp.StoredProcedure, recipients, s.log),
	}

	return fanout, func() { db.Close() }, nil
}

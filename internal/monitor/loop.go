// Package monitor implements the Monitoring Loop: one task per source
// cluster, running the six-step cycle described in SPEC_FULL.md §4.7.
package monitor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crlsmrls/esmonitor/internal/collector"
	"github.com/crlsmrls/esmonitor/internal/esclient"
	"github.com/crlsmrls/esmonitor/internal/incident"
	"github.com/crlsmrls/esmonitor/internal/logger"
	"github.com/crlsmrls/esmonitor/internal/metrics"
	"github.com/crlsmrls/esmonitor/internal/model"
	"github.com/crlsmrls/esmonitor/internal/notify"
	"github.com/crlsmrls/esmonitor/internal/sinkclient"
	"github.com/crlsmrls/esmonitor/internal/timeutil"
	"github.com/crlsmrls/esmonitor/internal/urgent"
)

// Loop drives one source cluster's monitoring cycle at a fixed cadence.
type Loop struct {
	cluster    *esclient.Client
	sinkPool   *sinkclient.Pool
	collector  *collector.Collector
	evaluator  *urgent.Evaluator
	incidents  *incident.Writer
	fanout     *notify.Fanout
	thresholds   []model.UrgentThreshold
	indexNames   []string
	templatePath string
	interval     time.Duration
	// DevMode flips the §4.7 health-filter predicate (§9 Open Question 3):
	// normally only unhealthy indices are reported; in dev mode only
	// healthy ones are, to verify wiring.
	devMode bool
	log     zerolog.Logger
}

// Config bundles Loop's construction-time dependencies.
type Config struct {
	Cluster    *esclient.Client
	SinkPool   *sinkclient.Pool
	Collector  *collector.Collector
	Evaluator  *urgent.Evaluator
	Incidents  *incident.Writer
	Fanout     *notify.Fanout
	Thresholds   []model.UrgentThreshold
	IndexNames   []string
	TemplatePath string
	Interval     time.Duration
	DevMode      bool
	Log          zerolog.Logger
}

// New builds a Loop from cfg.
func New(cfg Config) *Loop {
	return &Loop{
		cluster:      cfg.Cluster,
		sinkPool:     cfg.SinkPool,
		collector:    cfg.Collector,
		evaluator:    cfg.Evaluator,
		incidents:    cfg.Incidents,
		fanout:       cfg.Fanout,
		thresholds:   cfg.Thresholds,
		indexNames:   cfg.IndexNames,
		templatePath: cfg.TemplatePath,
		interval:     cfg.Interval,
		devMode:      cfg.DevMode,
		log:          cfg.Log.With().Str("cluster", cfg.Cluster.ClusterName()).Logger(),
	}
}

// Run loops forever until ctx is cancelled. Iterations never overlap.
func (l *Loop) Run(ctx context.Context) {
	clusterName := l.cluster.ClusterName()
	for {
		if err := l.safeCycle(ctx); err != nil {
			l.log.Error().Err(err).Msg("monitoring cycle failed")
			metrics.MonitorCycleErrorsTotal.WithLabelValues(clusterName).Inc()
		}
		metrics.MonitorCyclesTotal.WithLabelValues(clusterName).Inc()

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.interval):
		}
	}
}

// safeCycle wraps cycle with a panic-recovery catch boundary, per §4.7's
// failure-isolation requirement.
func (l *Loop) safeCycle(ctx context.Context) error {
	return protect(func() error { return l.cycle(ctx) })
}

// protect runs f under a recover() boundary so a panic inside one
// iteration never kills the outer monitoring task.
func protect(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in monitoring cycle: %v", r)
		}
	}()
	return f()
}

func (l *Loop) cycle(ctx context.Context) error {
	clusterName := l.cluster.ClusterName()
	ctx, log := logger.WithCorrelationID(ctx, l.log, uuid.New().String())

	// Step 1: ping every node.
	pingStart := time.Now()
	pings := l.cluster.PerNodePingAll(ctx)
	metrics.SourceRequestDurationSeconds.WithLabelValues(clusterName, "ping").Observe(time.Since(pingStart).Seconds())
	var downHosts []string
	for _, p := range pings {
		if !p.OK {
			downHosts = append(downHosts, p.Host)
		}
	}
	if len(downHosts) > 0 {
		msg := notify.NodeFault{ClusterName: l.cluster.ClusterName(), Hosts: downHosts, TemplatePath: l.templatePath}
		if err := l.fanout.Send(ctx, msg); err != nil {
			log.Error().Err(err).Msg("failed to notify node connection failures")
		}
		l.incidents.PutNodeConnErr(ctx, l.cluster.ClusterName(), downHosts)
	}

	// Step 2: cluster health.
	healthStart := time.Now()
	health, err := l.cluster.ClusterHealth(ctx)
	metrics.SourceRequestDurationSeconds.WithLabelValues(clusterName, "cluster_health").Observe(time.Since(healthStart).Seconds())
	if err != nil {
		log.Error().Err(err).Msg("cluster_health failed")
	} else if status, _ := health["status"].(string); !strings.EqualFold(status, "green") {
		status = strings.ToUpper(status)
		badIndices, err := l.collectUnstableIndices(ctx)
		if err != nil {
			log.Error().Err(err).Msg("indices_cat failed")
		} else if len(badIndices) > 0 {
			msg := notify.UnstableHealth{ClusterName: l.cluster.ClusterName(), Status: status, Indices: badIndices, TemplatePath: l.templatePath}
			if err := l.fanout.Send(ctx, msg); err != nil {
				log.Error().Err(err).Msg("failed to notify unstable cluster health")
			}
			l.incidents.PutClusterHealthUnstable(ctx, l.cluster.ClusterName(), badIndices, status)
		}
	}

	// Step 3: collect and write node metrics.
	collectStart := time.Now()
	records, err := l.collector.CollectNodeMetrics(ctx)
	metrics.SourceRequestDurationSeconds.WithLabelValues(clusterName, "collect_node_metrics").Observe(time.Since(collectStart).Seconds())
	if err != nil {
		log.Error().Err(err).Msg("metric collection failed")
	} else {
		l.writeMetricRecords(ctx, records)
	}

	// Step 4: per-index stats for every configured index.
	for _, indexName := range l.indexNames {
		indexStart := time.Now()
		rec, err := l.collector.CollectIndexMetrics(ctx, indexName)
		metrics.SourceRequestDurationSeconds.WithLabelValues(clusterName, "collect_index_metrics").Observe(time.Since(indexStart).Seconds())
		if err != nil {
			log.Error().Err(err).Str("index", indexName).Msg("per-index metric collection failed")
			continue
		}
		l.writeIndexMetricRecord(ctx, rec)
	}

	// Step 5: urgent evaluation.
	breaches, err := l.evaluator.Evaluate(ctx, l.cluster.UrgentIndexPattern(), l.cluster.Hosts(), l.thresholds)
	if err != nil {
		log.Error().Err(err).Msg("urgent evaluation failed")
	} else if len(breaches) > 0 {
		msg := notify.UrgentBreachMessage{ClusterName: l.cluster.ClusterName(), Breaches: breaches, TemplatePath: l.templatePath}
		if err := l.fanout.Send(ctx, msg); err != nil {
			log.Error().Err(err).Msg("failed to notify urgent breaches")
		}
		l.incidents.PutUrgentBreaches(ctx, l.cluster.ClusterName(), breaches)
		for _, b := range breaches {
			metrics.UrgentBreachesTotal.WithLabelValues(clusterName, b.MetricName).Inc()
		}
	}

	return nil
}

// collectUnstableIndices parses /_cat/indices and applies the §4.7/§9
// health-filter predicate, inverted in dev mode.
func (l *Loop) collectUnstableIndices(ctx context.Context) ([]string, error) {
	body, err := l.cluster.CatIndicesHealth(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		health, status, index := fields[0], fields[1], fields[2]

		unstable := !strings.EqualFold(health, "green") || status != "open"
		keep := unstable
		if l.devMode {
			keep = !unstable
		}
		if keep {
			names = append(names, index)
		}
	}
	sort.Strings(names)
	return names, nil
}

// sinkIndexFor derives a record's sink index from its own timestamp, not
// the time of the write: index_of(r) = prefix + utc_yyyymmdd(r.timestamp).
func sinkIndexFor(prefix, timestamp string) (string, error) {
	ts, err := timeutil.ParseISO(timestamp)
	if err != nil {
		return "", err
	}
	return timeutil.IndexName(prefix, ts), nil
}

func (l *Loop) writeMetricRecords(ctx context.Context, records []model.MetricRecord) {
	guard, err := l.sinkPool.AcquireGuard(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("failed to acquire sink guard for metric write")
		return
	}
	defer guard.Release()

	for _, rec := range records {
		index, err := sinkIndexFor(l.cluster.IndexPattern(), rec.Timestamp)
		if err != nil {
			l.log.Error().Err(err).Str("host", rec.Host).Msg("failed to derive sink index from metric record timestamp")
			continue
		}
		body, err := json.Marshal(rec)
		if err != nil {
			l.log.Error().Err(err).Msg("failed to marshal metric record")
			continue
		}
		if err := guard.Client().PostDoc(ctx, index, body); err != nil {
			l.log.Error().Err(err).Str("host", rec.Host).Msg("failed to write metric record")
		}
	}
}

func (l *Loop) writeIndexMetricRecord(ctx context.Context, rec model.IndexMetricRecord) {
	index, err := sinkIndexFor(l.cluster.PerIndexPattern(), rec.Timestamp)
	if err != nil {
		l.log.Error().Err(err).Str("index_name", rec.IndexName).Msg("failed to derive sink index from per-index metric record timestamp")
		return
	}

	guard, err := l.sinkPool.AcquireGuard(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("failed to acquire sink guard for per-index metric write")
		return
	}
	defer guard.Release()

	body, err := json.Marshal(rec)
	if err != nil {
		l.log.Error().Err(err).Msg("failed to marshal per-index metric record")
		return
	}
	if err := guard.Client().PostDoc(ctx, index, body); err != nil {
		l.log.Error().Err(err).Str("index_name", rec.IndexName).Msg("failed to write per-index metric record")
	}
}

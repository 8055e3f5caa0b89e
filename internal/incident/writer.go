// Package incident is the Incident Log Writer: it bulk-writes anomaly
// records to the sink, one post_doc call per incident, individual failures
// logged and not fatal to the batch (SPEC_FULL.md §4.5).
package incident

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/crlsmrls/esmonitor/internal/metrics"
	"github.com/crlsmrls/esmonitor/internal/model"
	"github.com/crlsmrls/esmonitor/internal/sinkclient"
	"github.com/crlsmrls/esmonitor/internal/timeutil"
)

// Writer bulk-writes IncidentRecord documents through a sink connection
// pool.
type Writer struct {
	pool              *sinkclient.Pool
	errLogIndexPrefix string
	log               zerolog.Logger
}

// New builds a Writer targeting errLogIndexPrefix-suffixed daily indices.
func New(pool *sinkclient.Pool, errLogIndexPrefix string, log zerolog.Logger) *Writer {
	return &Writer{pool: pool, errLogIndexPrefix: errLogIndexPrefix, log: log}
}

// putAll fans records out concurrently, one post_doc per incident. A plain
// WaitGroup is used deliberately: individual failures must not cancel
// siblings, unlike the first-error-wins fan-outs elsewhere in the daemon.
func (w *Writer) putAll(ctx context.Context, records []model.IncidentRecord) {
	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(rec model.IncidentRecord) {
			defer wg.Done()

			guard, err := w.pool.AcquireGuard(ctx)
			if err != nil {
				w.log.Error().Err(err).Str("err_title", rec.ErrTitle).Msg("failed to acquire sink guard for incident write")
				return
			}
			defer guard.Release()

			body, err := json.Marshal(rec)
			if err != nil {
				w.log.Error().Err(err).Msg("failed to marshal incident record")
				return
			}

			index := timeutil.IndexName(w.errLogIndexPrefix, timeutil.NowUTC())
			if err := guard.Client().PostDoc(ctx, index, body); err != nil {
				w.log.Error().Err(err).Str("index", index).Str("err_title", rec.ErrTitle).Msg("failed to write incident record")
				return
			}
			metrics.IncidentsWrittenTotal.WithLabelValues(rec.ClusterName, rec.ErrTitle).Inc()
		}(rec)
	}
	wg.Wait()
}

// PutNodeConnErr writes one incident per unreachable host.
func (w *Writer) PutNodeConnErr(ctx context.Context, clusterName string, hosts []string) {
	now := timeutil.FormatISO(timeutil.NowUTC())
	records := make([]model.IncidentRecord, 0, len(hosts))
	for _, h := range hosts {
		records = append(records, model.IncidentRecord{
			ClusterName: clusterName,
			Host:        h,
			Timestamp:   now,
			ErrTitle:    model.ErrTitleNodeConnFailure,
			ErrDetail:   "node did not respond to ping",
		})
	}
	w.putAll(ctx, records)
}

// PutClusterHealthUnstable writes one incident per unstable index.
func (w *Writer) PutClusterHealthUnstable(ctx context.Context, clusterName string, badIndices []string, status string) {
	now := timeutil.FormatISO(timeutil.NowUTC())
	records := make([]model.IncidentRecord, 0, len(badIndices))
	for _, idx := range badIndices {
		records = append(records, model.IncidentRecord{
			ClusterName: clusterName,
			IndexName:   idx,
			Timestamp:   now,
			ErrTitle:    model.ErrTitleClusterUnstable,
			ErrDetail:   "cluster health " + status,
		})
	}
	w.putAll(ctx, records)
}

// PutUrgentBreaches writes one incident per urgent threshold breach.
func (w *Writer) PutUrgentBreaches(ctx context.Context, clusterName string, breaches []model.UrgentBreach) {
	now := timeutil.FormatISO(timeutil.NowUTC())
	records := make([]model.IncidentRecord, 0, len(breaches))
	for _, b := range breaches {
		records = append(records, model.IncidentRecord{
			ClusterName: clusterName,
			Host:        b.Host,
			Timestamp:   now,
			ErrTitle:    model.ErrTitleUrgentAlarm,
			ErrDetail:   b.MetricName + "=" + b.ValueStr,
		})
	}
	w.putAll(ctx, records)
}

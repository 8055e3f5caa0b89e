// Package report implements the Report Loop (SPEC_FULL.md §4.8): one task
// per (cluster, ReportKind), waking on a cron schedule to replay incident
// history through a sink date-histogram aggregation.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/crlsmrls/esmonitor/internal/model"
	"github.com/crlsmrls/esmonitor/internal/sinkclient"
	"github.com/crlsmrls/esmonitor/internal/timeutil"
)

// HistogramPoint is one converted date-histogram bucket, ready for chart
// rendering and message composition.
type HistogramPoint = model.ErrAggHistoryBucket

// bootstrapDate is the synthetic document date written when an incident
// pattern has no data at all, so later aggregations don't error on a
// missing index (§4.8 "Bootstrapping empty indices").
const bootstrapDate = "19750101"

// alarmPeriodSample is the minimal shape pulled back from the sink for the
// alarm-period computation: only the timestamp matters.
type alarmPeriodSample struct {
	Timestamp string `json:"timestamp"`
}

type histogramBucket struct {
	KeyAsString string `json:"key_as_string"`
	DocCount    int64  `json:"doc_count"`
}

type histogramAggs struct {
	Incidents struct {
		Buckets []histogramBucket `json:"buckets"`
	} `json:"incidents"`
}

// maxAlarmPeriodSamples bounds the ordered-timestamp fetch used for the
// alarm-period computation; a report window pulling more incidents than
// this undercounts periods rather than growing memory unbounded.
const maxAlarmPeriodSamples = 10000

// Aggregator replays incident history for one cluster/report-kind pair.
type Aggregator struct {
	pool              *sinkclient.Pool
	errLogIndexPrefix string
	log               zerolog.Logger
}

// NewAggregator builds an Aggregator reading from the errLogIndexPrefix*
// incident pattern.
func NewAggregator(pool *sinkclient.Pool, errLogIndexPrefix string, log zerolog.Logger) *Aggregator {
	return &Aggregator{pool: pool, errLogIndexPrefix: errLogIndexPrefix, log: log}
}

// Result bundles everything one report run needs to compose its message.
type Result struct {
	Count            int64
	AlarmPeriodCount int
	Buckets          []HistogramPoint
}

// Run executes §4.8 steps 4-6 for one (clusterName, errTitle, window,
// calendarInterval) combination. errTitle filters to a single incident
// category; pass "" to match every incident in window regardless of title.
func (a *Aggregator) Run(ctx context.Context, clusterName, errTitle string, window model.ReportWindow, calendarInterval string) (Result, error) {
	indexPattern := a.errLogIndexPrefix + "*"

	bootstrapped, err := a.ensureBootstrapped(ctx, indexPattern)
	if err != nil {
		return Result{}, fmt.Errorf("report: bootstrap probe failed: %w", err)
	}
	if !bootstrapped {
		// The pattern had no data and the synthetic-document insert failed;
		// querying a missing index would error, so this cycle reports empty.
		return Result{}, nil
	}

	filter := buildFilter(clusterName, errTitle, window)

	guard, err := a.pool.AcquireGuard(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("report: acquire sink guard: %w", err)
	}
	defer guard.Release()

	countQuery, err := json.Marshal(map[string]interface{}{"query": filter})
	if err != nil {
		return Result{}, fmt.Errorf("report: marshal count query: %w", err)
	}
	count, err := guard.Client().GetCountQuery(ctx, countQuery, indexPattern)
	if err != nil {
		return Result{}, fmt.Errorf("report: count query failed: %w", err)
	}

	histQuery, err := json.Marshal(buildHistogramQuery(filter, calendarInterval, window))
	if err != nil {
		return Result{}, fmt.Errorf("report: marshal histogram query: %w", err)
	}
	aggs, err := sinkclient.GetAggQuery[histogramAggs](ctx, guard.Client(), histQuery, indexPattern)
	if err != nil {
		return Result{}, fmt.Errorf("report: histogram query failed: %w", err)
	}

	orderedQuery, err := json.Marshal(buildOrderedTimestampsQuery(filter))
	if err != nil {
		return Result{}, fmt.Errorf("report: marshal ordered-timestamps query: %w", err)
	}
	samples, err := sinkclient.GetSearchQuery[alarmPeriodSample](ctx, guard.Client(), orderedQuery, indexPattern)
	if err != nil {
		return Result{}, fmt.Errorf("report: ordered-timestamps query failed: %w", err)
	}

	buckets := a.convertBuckets(clusterName, aggs.Incidents.Buckets)

	return Result{
		Count:            count,
		AlarmPeriodCount: alarmPeriodCount(samples),
		Buckets:          buckets,
	}, nil
}

// ensureBootstrapped checks whether indexPattern has any data; if not, it
// writes a single synthetic document dated bootstrapDate so the subsequent
// count/aggregation queries don't fail against a missing index. The
// returned bool reports whether it is now safe to query indexPattern: true
// if data already existed or the synthetic insert succeeded, false only
// when the pattern was empty and the insert itself failed.
func (a *Aggregator) ensureBootstrapped(ctx context.Context, indexPattern string) (bool, error) {
	guard, err := a.pool.AcquireGuard(ctx)
	if err != nil {
		return false, err
	}
	defer guard.Release()

	hasData, err := guard.Client().CheckIndexHasData(ctx, indexPattern)
	if err != nil {
		return false, err
	}
	if hasData {
		return true, nil
	}

	synthetic := model.IncidentRecord{
		ClusterName: "bootstrap",
		Timestamp:   "1975-01-01T00:00:00Z",
		ErrTitle:    "bootstrap",
		ErrDetail:   "synthetic document, written so aggregations succeed against an empty index",
	}
	body, err := json.Marshal(synthetic)
	if err != nil {
		return false, err
	}

	bootstrapIndex := a.errLogIndexPrefix + bootstrapDate
	if err := guard.Client().PostDoc(ctx, bootstrapIndex, body); err != nil {
		a.log.Warn().Err(err).Str("index", bootstrapIndex).Msg("bootstrap insert failed, this cycle returns no buckets")
		return false, nil
	}
	return true, nil
}

func buildFilter(clusterName, errTitle string, window model.ReportWindow) map[string]interface{} {
	must := []map[string]interface{}{
		{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": timeutil.FormatISO(window.From),
					"lte": timeutil.FormatISO(window.To),
				},
			},
		},
		{"term": map[string]interface{}{"cluster_name": clusterName}},
	}
	if errTitle != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"err_title": errTitle}})
	}
	return map[string]interface{}{"bool": map[string]interface{}{"must": must}}
}

func buildHistogramQuery(filter map[string]interface{}, calendarInterval string, window model.ReportWindow) map[string]interface{} {
	return map[string]interface{}{
		"size":  0,
		"query": filter,
		"aggs": map[string]interface{}{
			"incidents": map[string]interface{}{
				"date_histogram": map[string]interface{}{
					"field":             "timestamp",
					"calendar_interval": calendarInterval,
					"min_doc_count":     0,
					"extended_bounds": map[string]interface{}{
						"min": timeutil.FormatISO(window.From),
						"max": timeutil.FormatISO(window.To),
					},
				},
			},
		},
	}
}

func buildOrderedTimestampsQuery(filter map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"size":  maxAlarmPeriodSamples,
		"query": filter,
		"sort":  []map[string]interface{}{{"timestamp": "asc"}},
	}
}

func (a *Aggregator) convertBuckets(clusterName string, buckets []histogramBucket) []HistogramPoint {
	points := make([]HistogramPoint, 0, len(buckets))
	for _, b := range buckets {
		if b.KeyAsString == "" {
			a.log.Warn().Msg("histogram bucket missing key_as_string, dropped")
			continue
		}
		local, err := timeutil.ConvertUTCToLocal(b.KeyAsString)
		if err != nil {
			a.log.Warn().Err(err).Str("key_as_string", b.KeyAsString).Msg("failed to convert bucket to local time, dropped")
			continue
		}
		points = append(points, HistogramPoint{
			ClusterName: clusterName,
			DateAtLocal: local,
			DocCount:    b.DocCount,
		})
	}
	return points
}

// alarmPeriodCount sorts the parseable incident timestamps and returns how
// many gaps of more than 60 seconds lie between consecutive ones, i.e. the
// number of periods after the first. An empty list or a single period
// yields 0.
func alarmPeriodCount(samples []alarmPeriodSample) int {
	timestamps := make([]time.Time, 0, len(samples))
	for _, s := range samples {
		t, err := timeutil.ParseISO(s.Timestamp)
		if err != nil {
			continue
		}
		timestamps = append(timestamps, t)
	}
	if len(timestamps) == 0 {
		return 0
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	count := 0
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i].Sub(timestamps[i-1]) > 60*time.Second {
			count++
		}
	}
	return count
}

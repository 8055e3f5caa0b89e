// Package collector fuses the Metric Collector's several source endpoints
// (/_nodes/stats, /_cat/shards, /_cat/thread_pool, per-index _stats) into
// unified MetricRecord and IndexMetricRecord documents (SPEC_FULL.md §4.3).
package collector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/crlsmrls/esmonitor/internal/esclient"
	"github.com/crlsmrls/esmonitor/internal/mathutil"
	"github.com/crlsmrls/esmonitor/internal/model"
	"github.com/crlsmrls/esmonitor/internal/timeutil"
)

// nodeStatsMetrics is the metric-group list passed to /_nodes/stats.
var nodeStatsMetrics = []string{"fs", "jvm", "indices", "os", "http", "breaker"}

// Collector produces MetricRecord and IndexMetricRecord documents for one
// source cluster at one instant.
type Collector struct {
	es  *esclient.Client
	log zerolog.Logger
}

// New builds a Collector over es, logging warnings through log.
func New(es *esclient.Client, log zerolog.Logger) *Collector {
	return &Collector{es: es, log: log.With().Str("cluster", es.ClusterName()).Logger()}
}

// CollectNodeMetrics runs the full three-pass fusion algorithm of §4.3 and
// returns one MetricRecord per node currently reporting stats.
func (c *Collector) CollectNodeMetrics(ctx context.Context) ([]model.MetricRecord, error) {
	now := timeutil.NowUTC()
	ts := timeutil.FormatISO(now)

	body, err := c.es.NodesStats(ctx, nodeStatsMetrics)
	if err != nil {
		return nil, fmt.Errorf("collector: nodes_stats: %w", err)
	}

	nodes := gjson.GetBytes(body, "nodes")
	if !nodes.Exists() {
		return nil, fmt.Errorf("collector: nodes_stats response missing %q", "nodes")
	}

	var records []model.MetricRecord
	var extractErr error
	nodes.ForEach(func(_, node gjson.Result) bool {
		rec, err := c.extractNode(node, ts)
		if err != nil {
			extractErr = fmt.Errorf("collector: node stats: %w", err)
			return false
		}
		records = append(records, rec)
		return true
	})
	if extractErr != nil {
		// A single node missing a stats field aborts the whole nodes_stats
		// pass for this cycle, matching the source's metrics_service_impl
		// behavior of returning early on the first missing field rather than
		// degrading one node's record to zeroes.
		return nil, extractErr
	}

	shardCounts, err := c.collectShardCounts(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("cat_shards failed, node_shard_cnt left at 0")
	} else {
		for i := range records {
			records[i].NodeShardCnt = shardCounts[records[i].Host]
		}
	}

	pools, err := c.collectThreadPools(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("cat_thread_pool failed, pool fields left at 0")
	} else {
		for _, rec := range records {
			if _, ok := pools[rec.Name]; !ok {
				c.log.Warn().Str("node", rec.Name).Msg("node missing from cat_thread_pool output, pool fields left at 0")
			}
		}
		applyThreadPools(records, pools)
	}

	return records, nil
}

// path looks up a dotted JSON path and reports whether it exists, per §4.3's
// "missing path = error" contract.
func path(node gjson.Result, p string) (gjson.Result, bool) {
	v := node.Get(p)
	return v, v.Exists()
}

// fieldExtractor applies the "errors are values" pattern (as in bufio.Writer
// and text/template's errWriter): every lookup checks a sticky error first
// and becomes a no-op once one path is missing, so a run of lookups can be
// written flat and checked once at the end, while still failing the whole
// record the instant any single field is absent (§4.3, §7).
type fieldExtractor struct {
	node gjson.Result
	err  error
}

func newFieldExtractor(node gjson.Result) *fieldExtractor {
	return &fieldExtractor{node: node}
}

func (e *fieldExtractor) lookup(p string) (gjson.Result, bool) {
	if e.err != nil {
		return gjson.Result{}, false
	}
	v, ok := path(e.node, p)
	if !ok {
		e.err = fmt.Errorf("missing path %q", p)
		return gjson.Result{}, false
	}
	return v, true
}

func (e *fieldExtractor) int(p string) int64 {
	v, ok := e.lookup(p)
	if !ok {
		return 0
	}
	return v.Int()
}

func (e *fieldExtractor) float(p string) float64 {
	v, ok := e.lookup(p)
	if !ok {
		return 0
	}
	return v.Float()
}

func (c *Collector) extractNode(node gjson.Result, ts string) (model.MetricRecord, error) {
	name, ok := path(node, "name")
	if !ok {
		return model.MetricRecord{}, fmt.Errorf("missing name")
	}
	host, ok := path(node, "host")
	if !ok {
		return model.MetricRecord{}, fmt.Errorf("missing host")
	}

	rec := model.MetricRecord{
		Timestamp: ts,
		Host:      host.String(),
		Name:      name.String(),
	}

	e := newFieldExtractor(node)

	rec.CPUUsagePct = e.int("os.cpu.percent")

	heapUsed := e.float("jvm.mem.heap_used_in_bytes")
	heapMax := e.float("jvm.mem.heap_max_in_bytes")
	pct, _ := mathutil.PercentOf(heapUsed, heapMax, 0)
	rec.JVMHeapUsagePct = int64(pct)

	fsTotal := e.int("fs.total.total_in_bytes")
	fsAvail := e.int("fs.total.available_in_bytes")
	rec.DiskUsagePct = mathutil.DiskUsagePct(fsTotal, fsAvail)

	rec.JVMYoungPoolBytes = e.int("jvm.mem.pools.young.used_in_bytes")
	rec.JVMOldPoolBytes = e.int("jvm.mem.pools.old.used_in_bytes")
	rec.JVMSurvivorPoolBytes = e.int("jvm.mem.pools.survivor.used_in_bytes")

	rec.JVMBufferPoolMapped = extractBufferPool(e, "jvm.buffer_pools.mapped")
	rec.JVMBufferPoolDirect = extractBufferPool(e, "jvm.buffer_pools.direct")

	hitCount := e.float("indices.query_cache.hit_count")
	missCount := e.float("indices.query_cache.miss_count")
	qcPct, _ := mathutil.PercentOf(hitCount, hitCount+missCount, 2)
	rec.QueryCacheHitPct = qcPct
	rec.QueryCacheMemoryBytes = e.int("indices.query_cache.memory_size_in_bytes")

	rec.OSSwapTotalBytes = e.int("os.swap.total_in_bytes")
	swapUsed := e.float("os.swap.used_in_bytes")
	swapTotal := e.float("os.swap.total_in_bytes")
	swapPct, _ := mathutil.PercentOf(swapUsed, swapTotal, 2)
	rec.OSSwapUsagePct = swapPct

	rec.HTTPCurrentOpen = e.int("http.current_open")

	indexTimeMs := e.float("indices.indexing.index_time_in_millis")
	indexTotal := e.float("indices.indexing.index_total")
	lat, _ := mathutil.SafeDiv(indexTimeMs, indexTotal)
	rec.IndexingLatency = mathutil.Round(lat, 5)

	queryTimeMs := e.float("indices.search.query_time_in_millis")
	queryTotal := e.float("indices.search.query_total")
	rec.QueryLatency, _ = mathutil.SafeDiv(queryTimeMs, queryTotal)

	fetchTimeMs := e.float("indices.search.fetch_time_in_millis")
	fetchTotal := e.float("indices.search.fetch_total")
	rec.FetchLatency, _ = mathutil.SafeDiv(fetchTimeMs, fetchTotal)

	rec.Translog = extractTranslog(e, "indices.translog")
	rec.FlushTotal = e.int("indices.flush.total")
	rec.RefreshTotal = e.int("indices.refresh.total")
	rec.RefreshListeners = e.int("indices.refresh.listeners")

	// Per-pool {active,queue,rejected} fields are not requested as part of
	// nodes_stats ("thread_pool" is absent from nodeStatsMetrics); they are
	// filled exclusively by the cat_thread_pool merge pass below.

	rec.SegmentMemory = extractSegmentMemory(e)
	rec.Breakers = extractBreakers(e)

	if e.err != nil {
		return model.MetricRecord{}, e.err
	}
	return rec, nil
}

func extractBufferPool(e *fieldExtractor, prefix string) model.BufferPoolStat {
	return model.BufferPoolStat{
		Count: e.int(prefix + ".count"),
		Used:  e.int(prefix + ".used_in_bytes"),
		Total: e.int(prefix + ".total_capacity_in_bytes"),
	}
}

func extractTranslog(e *fieldExtractor, prefix string) model.TranslogStat {
	return model.TranslogStat{
		Operations:            e.int(prefix + ".operations"),
		OperationsSizeBytes:   e.int(prefix + ".size_in_bytes"),
		UncommittedOperations: e.int(prefix + ".uncommitted_operations"),
		UncommittedSizeBytes:  e.int(prefix + ".uncommitted_size_in_bytes"),
	}
}

func extractSegmentMemory(e *fieldExtractor) model.SegmentMemory {
	const prefix = "indices.segments"
	return model.SegmentMemory{
		Count:                   e.int(prefix + ".count"),
		MemoryBytes:             e.int(prefix + ".memory_in_bytes"),
		TermsMemoryBytes:        e.int(prefix + ".terms_memory_in_bytes"),
		StoredFieldsMemoryBytes: e.int(prefix + ".stored_fields_memory_in_bytes"),
		TermVectorsMemoryBytes:  e.int(prefix + ".term_vectors_memory_in_bytes"),
		NormsMemoryBytes:        e.int(prefix + ".norms_memory_in_bytes"),
		PointsMemoryBytes:       e.int(prefix + ".points_memory_in_bytes"),
		DocValuesMemoryBytes:    e.int(prefix + ".doc_values_memory_in_bytes"),
		IndexWriterMemoryBytes:  e.int(prefix + ".index_writer_memory_in_bytes"),
		VersionMapMemoryBytes:   e.int(prefix + ".version_map_memory_in_bytes"),
		FixedBitSetMemoryBytes:  e.int(prefix + ".fixed_bit_set_memory_in_bytes"),
	}
}

func extractBreaker(e *fieldExtractor, name string) model.BreakerStat {
	prefix := "breakers." + name
	return model.BreakerStat{
		LimitBytes:     e.int(prefix + ".limit_size_in_bytes"),
		EstimatedBytes: e.int(prefix + ".estimated_size_in_bytes"),
		TrippedCount:   e.int(prefix + ".tripped"),
	}
}

func extractBreakers(e *fieldExtractor) model.Breakers {
	return model.Breakers{
		Request:          extractBreaker(e, "request"),
		FieldData:        extractBreaker(e, "fielddata"),
		InFlightRequests: extractBreaker(e, "in_flight_requests"),
		Parent:           extractBreaker(e, "parent"),
	}
}

package model

// PoolStat carries the {active, queue, rejected} triple for one thread pool.
type PoolStat struct {
	Active   int64 `json:"active"`
	Queue    int64 `json:"queue"`
	Rejected int64 `json:"rejected"`
}

// BufferPoolStat carries {count, used, total} for a JVM buffer pool
// (mapped or direct).
type BufferPoolStat struct {
	Count int64 `json:"count"`
	Used  int64 `json:"used_bytes"`
	Total int64 `json:"total_bytes"`
}

// TranslogStat carries the four translog counters tracked per node and
// per index.
type TranslogStat struct {
	Operations              int64 `json:"operations"`
	OperationsSizeBytes     int64 `json:"operations_size_bytes"`
	UncommittedOperations   int64 `json:"uncommitted_operations"`
	UncommittedSizeBytes    int64 `json:"uncommitted_size_bytes"`
}

// SegmentMemory is the 11-field segment-memory breakdown.
type SegmentMemory struct {
	Count                    int64 `json:"count"`
	MemoryBytes              int64 `json:"memory_bytes"`
	TermsMemoryBytes         int64 `json:"terms_memory_bytes"`
	StoredFieldsMemoryBytes  int64 `json:"stored_fields_memory_bytes"`
	TermVectorsMemoryBytes   int64 `json:"term_vectors_memory_bytes"`
	NormsMemoryBytes         int64 `json:"norms_memory_bytes"`
	PointsMemoryBytes        int64 `json:"points_memory_bytes"`
	DocValuesMemoryBytes     int64 `json:"doc_values_memory_bytes"`
	IndexWriterMemoryBytes   int64 `json:"index_writer_memory_bytes"`
	VersionMapMemoryBytes    int64 `json:"version_map_memory_bytes"`
	FixedBitSetMemoryBytes   int64 `json:"fixed_bit_set_memory_bytes"`
}

// BreakerStat is one circuit-breaker's {limit, estimated, tripped} triple.
type BreakerStat struct {
	LimitBytes     int64 `json:"limit_bytes"`
	EstimatedBytes int64 `json:"estimated_bytes"`
	TrippedCount   int64 `json:"tripped_count"`
}

// Breakers groups the four circuit-breaker families tracked per node.
type Breakers struct {
	Request          BreakerStat `json:"request"`
	FieldData        BreakerStat `json:"fielddata"`
	InFlightRequests BreakerStat `json:"inflight_requests"`
	Parent           BreakerStat `json:"parent"`
}

// MetricRecord is the per-node sample fused by the Metric Collector from
// /_nodes/stats, /_cat/shards, and /_cat/thread_pool (§4.3).
type MetricRecord struct {
	Timestamp string `json:"timestamp"`
	Host      string `json:"host"`
	Name      string `json:"name"`

	CPUUsagePct     int64 `json:"cpu_usage_pct"`
	JVMHeapUsagePct int64 `json:"jvm_heap_usage_pct"`
	DiskUsagePct    int64 `json:"disk_usage_pct"`

	JVMYoungPoolBytes    int64 `json:"jvm_young_pool_bytes"`
	JVMOldPoolBytes      int64 `json:"jvm_old_pool_bytes"`
	JVMSurvivorPoolBytes int64 `json:"jvm_survivor_pool_bytes"`

	JVMBufferPoolMapped BufferPoolStat `json:"jvm_buffer_pool_mapped"`
	JVMBufferPoolDirect BufferPoolStat `json:"jvm_buffer_pool_direct"`

	QueryCacheHitPct    float64 `json:"query_cache_hit_pct"`
	QueryCacheMemoryBytes int64 `json:"query_cache_memory_bytes"`

	OSSwapTotalBytes int64   `json:"os_swap_total_bytes"`
	OSSwapUsagePct   float64 `json:"os_swap_usage_pct"`

	HTTPCurrentOpen int64 `json:"http_current_open"`

	IndexingLatency float64 `json:"indexing_latency"`
	QueryLatency    float64 `json:"query_latency"`
	FetchLatency    float64 `json:"fetch_latency"`

	Translog        TranslogStat `json:"translog"`
	FlushTotal      int64        `json:"flush_total"`
	RefreshTotal    int64        `json:"refresh_total"`
	RefreshListeners int64       `json:"refresh_listeners"`

	SearchPool     PoolStat `json:"search_pool"`
	WritePool      PoolStat `json:"write_pool"`
	BulkPool       PoolStat `json:"bulk_pool"`
	GetPool        PoolStat `json:"get_pool"`
	ManagementPool PoolStat `json:"management_pool"`
	GenericPool    PoolStat `json:"generic_pool"`

	SegmentMemory SegmentMemory `json:"segment_memory"`
	Breakers      Breakers      `json:"breakers"`

	NodeShardCnt int64 `json:"node_shard_cnt"`
}

// IndexMetricRecord is the per-index counterpart populated from
// {index}/_stats._all.total.
type IndexMetricRecord struct {
	Timestamp        string       `json:"timestamp"`
	IndexName        string       `json:"index_name"`
	Translog         TranslogStat `json:"translog"`
	FlushTotal       int64        `json:"flush_total"`
	RefreshTotal     int64        `json:"refresh_total"`
	RefreshListeners int64        `json:"refresh_listeners"`
}

// ThreadPoolCells is one parsed line of `cat_thread_pool` output:
// node_name pool_name active queue rejected.
type ThreadPoolCells struct {
	NodeName string
	PoolName string
	Active   int64
	Queue    int64
	Rejected int64
}

// MonitoredPools is the closed set of thread pools the collector extracts
// from /_cat/thread_pool.
var MonitoredPools = map[string]bool{
	"search":     true,
	"write":      true,
	"bulk":       true,
	"get":        true,
	"management": true,
	"generic":    true,
}

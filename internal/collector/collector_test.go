package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/crlsmrls/esmonitor/internal/esclient"
	"github.com/crlsmrls/esmonitor/internal/model"
)

const nodesStatsFixture = `{
  "nodes": {
    "abc123": {
      "name": "node-1",
      "host": "10.0.0.1",
      "os": {"cpu": {"percent": 42}, "swap": {"total_in_bytes": 100, "used_in_bytes": 10}},
      "jvm": {
        "mem": {
          "heap_used_in_bytes": 50,
          "heap_max_in_bytes": 100,
          "pools": {
            "young": {"used_in_bytes": 1},
            "old": {"used_in_bytes": 2},
            "survivor": {"used_in_bytes": 3}
          }
        },
        "buffer_pools": {
          "mapped": {"count": 1, "used_in_bytes": 2, "total_capacity_in_bytes": 3},
          "direct": {"count": 4, "used_in_bytes": 5, "total_capacity_in_bytes": 6}
        }
      },
      "fs": {"total": {"total_in_bytes": 1000, "available_in_bytes": 250}},
      "http": {"current_open": 7},
      "indices": {
        "query_cache": {"hit_count": 80, "miss_count": 20, "memory_size_in_bytes": 123},
        "indexing": {"index_time_in_millis": 10, "index_total": 4},
        "search": {
          "query_time_in_millis": 20, "query_total": 5,
          "fetch_time_in_millis": 9, "fetch_total": 3
        },
        "translog": {"operations": 1, "size_in_bytes": 2, "uncommitted_operations": 3, "uncommitted_size_in_bytes": 4},
        "flush": {"total": 11},
        "refresh": {"total": 12, "listeners": 0},
        "segments": {
          "count": 5, "memory_in_bytes": 55,
          "terms_memory_in_bytes": 1, "stored_fields_memory_in_bytes": 1,
          "term_vectors_memory_in_bytes": 1, "norms_memory_in_bytes": 1,
          "points_memory_in_bytes": 1, "doc_values_memory_in_bytes": 1,
          "index_writer_memory_in_bytes": 1, "version_map_memory_in_bytes": 1,
          "fixed_bit_set_memory_in_bytes": 1
        }
      },
      "thread_pool": {
        "search": {"active": 1, "queue": 2, "rejected": 0},
        "write": {"active": 3, "queue": 0, "rejected": 0}
      },
      "breakers": {
        "request": {"limit_size_in_bytes": 100, "estimated_size_in_bytes": 10, "tripped": 0},
        "fielddata": {"limit_size_in_bytes": 200, "estimated_size_in_bytes": 20, "tripped": 1},
        "in_flight_requests": {"limit_size_in_bytes": 300, "estimated_size_in_bytes": 30, "tripped": 0},
        "parent": {"limit_size_in_bytes": 400, "estimated_size_in_bytes": 40, "tripped": 0}
      }
    }
  }
}`

func newTestCollector(t *testing.T, nodesStatsBody, catShardsBody, catThreadPoolBody string) *Collector {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/_nodes"):
			w.Write([]byte(nodesStatsBody))
		case strings.Contains(r.URL.Path, "/_cat/shards"):
			w.Write([]byte(catShardsBody))
		case strings.Contains(r.URL.Path, "/_cat/thread_pool"):
			w.Write([]byte(catThreadPoolBody))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)

	host := strings.TrimPrefix(srv.URL, "http://")
	es, err := esclient.New(model.ClusterDescriptor{ClusterName: "demo", Hosts: []string{host}})
	if err != nil {
		t.Fatalf("esclient.New() error = %v", err)
	}
	return New(es, zerolog.Nop())
}

func TestCollectNodeMetrics_ExtractsFields(t *testing.T) {
	c := newTestCollector(t, nodesStatsFixture, "", "")

	records, err := c.CollectNodeMetrics(context.Background())
	if err != nil {
		t.Fatalf("CollectNodeMetrics() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("CollectNodeMetrics() returned %d records, want 1", len(records))
	}

	r := records[0]
	if r.Host != "10.0.0.1" || r.Name != "node-1" {
		t.Errorf("identity fields = %q/%q, want 10.0.0.1/node-1", r.Host, r.Name)
	}
	if r.CPUUsagePct != 42 {
		t.Errorf("CPUUsagePct = %d, want 42", r.CPUUsagePct)
	}
	if r.JVMHeapUsagePct != 50 {
		t.Errorf("JVMHeapUsagePct = %d, want 50", r.JVMHeapUsagePct)
	}
	if r.DiskUsagePct != 75 {
		t.Errorf("DiskUsagePct = %d, want 75", r.DiskUsagePct)
	}
	if r.QueryCacheHitPct != 80 {
		t.Errorf("QueryCacheHitPct = %v, want 80", r.QueryCacheHitPct)
	}
	if r.JVMBufferPoolMapped.Total != 3 {
		t.Errorf("JVMBufferPoolMapped.Total = %d, want 3", r.JVMBufferPoolMapped.Total)
	}
	if r.Breakers.FieldData.TrippedCount != 1 {
		t.Errorf("Breakers.FieldData.TrippedCount = %d, want 1", r.Breakers.FieldData.TrippedCount)
	}
	// Per-pool fields are deliberately zero here: nodes_stats does not
	// request the "thread_pool" metric group, so they come only from the
	// cat_thread_pool merge pass (covered by TestCollectThreadPools_FiltersToMonitoredPools).
	if r.SearchPool != (model.PoolStat{}) {
		t.Errorf("SearchPool = %+v, want zero value before the cat_thread_pool merge", r.SearchPool)
	}
}

func TestCollectNodeMetrics_MissingNameAbortsWholePass(t *testing.T) {
	const body = `{"nodes": {"abc": {"host": "10.0.0.1"}}}`
	c := newTestCollector(t, body, "", "")

	records, err := c.CollectNodeMetrics(context.Background())
	if err == nil {
		t.Fatal("CollectNodeMetrics() error = nil, want an error for a node missing \"name\"")
	}
	if records != nil {
		t.Errorf("CollectNodeMetrics() records = %v, want nil on error", records)
	}
}

// A node present in the response but missing a required stats field (here
// jvm.mem.heap_max_in_bytes) must abort the whole nodes_stats pass for this
// cycle, not just drop that one node's record -- matching the original
// metrics_service_impl, which returns on the first missing field instead of
// degrading one node's record to zero.
func TestCollectNodeMetrics_MissingFieldAbortsWholePass(t *testing.T) {
	const body = `{
  "nodes": {
    "n1": {"name": "node-1", "host": "10.0.0.1"},
    "n2": {"name": "node-2", "host": "10.0.0.2"}
  }
}`
	c := newTestCollector(t, body, "", "")

	records, err := c.CollectNodeMetrics(context.Background())
	if err == nil {
		t.Fatal("CollectNodeMetrics() error = nil, want an error when a node is missing required fields")
	}
	if records != nil {
		t.Errorf("CollectNodeMetrics() records = %v, want nil on error", records)
	}
}

func fullNodeStatsJSON(id, name, host string) string {
	return `"` + id + `": {
		"name": "` + name + `",
		"host": "` + host + `",
		"os": {"cpu": {"percent": 1}, "swap": {"total_in_bytes": 100, "used_in_bytes": 10}},
		"jvm": {
			"mem": {
				"heap_used_in_bytes": 1,
				"heap_max_in_bytes": 2,
				"pools": {"young": {"used_in_bytes": 1}, "old": {"used_in_bytes": 1}, "survivor": {"used_in_bytes": 1}}
			},
			"buffer_pools": {
				"mapped": {"count": 1, "used_in_bytes": 1, "total_capacity_in_bytes": 1},
				"direct": {"count": 1, "used_in_bytes": 1, "total_capacity_in_bytes": 1}
			}
		},
		"fs": {"total": {"total_in_bytes": 100, "available_in_bytes": 25}},
		"http": {"current_open": 1},
		"indices": {
			"query_cache": {"hit_count": 1, "miss_count": 1, "memory_size_in_bytes": 1},
			"indexing": {"index_time_in_millis": 1, "index_total": 1},
			"search": {"query_time_in_millis": 1, "query_total": 1, "fetch_time_in_millis": 1, "fetch_total": 1},
			"translog": {"operations": 1, "size_in_bytes": 1, "uncommitted_operations": 1, "uncommitted_size_in_bytes": 1},
			"flush": {"total": 1},
			"refresh": {"total": 1, "listeners": 0},
			"segments": {
				"count": 1, "memory_in_bytes": 1, "terms_memory_in_bytes": 1, "stored_fields_memory_in_bytes": 1,
				"term_vectors_memory_in_bytes": 1, "norms_memory_in_bytes": 1, "points_memory_in_bytes": 1,
				"doc_values_memory_in_bytes": 1, "index_writer_memory_in_bytes": 1, "version_map_memory_in_bytes": 1,
				"fixed_bit_set_memory_in_bytes": 1
			}
		},
		"breakers": {
			"request": {"limit_size_in_bytes": 1, "estimated_size_in_bytes": 1, "tripped": 0},
			"fielddata": {"limit_size_in_bytes": 1, "estimated_size_in_bytes": 1, "tripped": 0},
			"in_flight_requests": {"limit_size_in_bytes": 1, "estimated_size_in_bytes": 1, "tripped": 0},
			"parent": {"limit_size_in_bytes": 1, "estimated_size_in_bytes": 1, "tripped": 0}
		}
	}`
}

// Scenario 6 from spec.md §8: cat_shards returns "10.0.0.1\n10.0.0.1\n10.0.0.2",
// hosts are 10.0.0.1/.2/.3 -> merged counts [2,1,0].
func TestCollectNodeMetrics_ShardCountMerge(t *testing.T) {
	nodesStats := `{"nodes": {` +
		fullNodeStatsJSON("n1", "node-1", "10.0.0.1") + "," +
		fullNodeStatsJSON("n2", "node-2", "10.0.0.2") + "," +
		fullNodeStatsJSON("n3", "node-3", "10.0.0.3") +
		`}}`
	const catShards = "10.0.0.1\n10.0.0.1\n10.0.0.2\n"

	c := newTestCollector(t, nodesStats, catShards, "")

	records, err := c.CollectNodeMetrics(context.Background())
	if err != nil {
		t.Fatalf("CollectNodeMetrics() error = %v", err)
	}

	byHost := map[string]int64{}
	for _, r := range records {
		byHost[r.Host] = r.NodeShardCnt
	}

	want := map[string]int64{"10.0.0.1": 2, "10.0.0.2": 1, "10.0.0.3": 0}
	for host, wantCnt := range want {
		if byHost[host] != wantCnt {
			t.Errorf("node_shard_cnt[%s] = %d, want %d", host, byHost[host], wantCnt)
		}
	}
}

func TestCollectThreadPools_FiltersToMonitoredPools(t *testing.T) {
	body := "node-1 search 1 2 0\nnode-1 refresh 9 9 9\nnode-1 bulk 3 0 1\n"
	c := newTestCollector(t, "", "", body)

	pools, err := c.collectThreadPools(context.Background())
	if err != nil {
		t.Fatalf("collectThreadPools() error = %v", err)
	}

	group, ok := pools["node-1"]
	if !ok {
		t.Fatal("collectThreadPools() missing node-1 group")
	}
	if _, ok := group["refresh"]; ok {
		t.Error("collectThreadPools() kept unmonitored pool \"refresh\"")
	}
	if group["search"].Queue != 2 {
		t.Errorf("search.Queue = %d, want 2", group["search"].Queue)
	}
	if group["bulk"].Rejected != 1 {
		t.Errorf("bulk.Rejected = %d, want 1", group["bulk"].Rejected)
	}
}

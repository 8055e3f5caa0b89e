package collector

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/crlsmrls/esmonitor/internal/model"
)

// threadPoolColumns matches the cat_thread_pool text contract of §4.3:
// node_name pool_name active queue rejected.
var threadPoolColumns = []string{"node_name", "name", "active", "queue", "rejected"}

// collectThreadPools parses /_cat/thread_pool into per-node, per-monitored-pool
// {active, queue, rejected} triples.
func (c *Collector) collectThreadPools(ctx context.Context) (map[string]map[string]model.PoolStat, error) {
	body, err := c.es.CatThreadPool(ctx, threadPoolColumns)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]model.PoolStat)
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 5 {
			c.log.Warn().Str("line", line).Msg("unparseable cat_thread_pool line, skipping")
			continue
		}

		nodeName, poolName := fields[0], fields[1]
		if !model.MonitoredPools[poolName] {
			continue
		}

		active, errA := strconv.ParseInt(fields[2], 10, 64)
		queue, errQ := strconv.ParseInt(fields[3], 10, 64)
		rejected, errR := strconv.ParseInt(fields[4], 10, 64)
		if errA != nil || errQ != nil || errR != nil {
			c.log.Warn().Str("line", line).Msg("non-numeric cat_thread_pool counters, skipping")
			continue
		}

		if out[nodeName] == nil {
			out[nodeName] = make(map[string]model.PoolStat)
		}
		out[nodeName][poolName] = model.PoolStat{Active: active, Queue: queue, Rejected: rejected}
	}
	return out, nil
}

// applyThreadPools sets the six {pool}_{active|queue|rejected} fields on
// every record whose name matches a parsed node group. Records without a
// matching group pass through unchanged (the caller logs a warning for each).
func applyThreadPools(records []model.MetricRecord, pools map[string]map[string]model.PoolStat) {
	for i := range records {
		group, ok := pools[records[i].Name]
		if !ok {
			continue
		}
		if v, ok := group["search"]; ok {
			records[i].SearchPool = v
		}
		if v, ok := group["write"]; ok {
			records[i].WritePool = v
		}
		if v, ok := group["bulk"]; ok {
			records[i].BulkPool = v
		}
		if v, ok := group["get"]; ok {
			records[i].GetPool = v
		}
		if v, ok := group["management"]; ok {
			records[i].ManagementPool = v
		}
		if v, ok := group["generic"]; ok {
			records[i].GenericPool = v
		}
	}
}

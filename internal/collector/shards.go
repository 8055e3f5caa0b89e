package collector

import (
	"bufio"
	"context"
	"strings"
)

// shardIPColumns is the single-column request used for shard counting,
// matching §4.3's cat_shards(["ip"]).
var shardIPColumns = []string{"ip"}

// collectShardCounts counts shards per node IP from /_cat/shards.
func (c *Collector) collectShardCounts(ctx context.Context) (map[string]int64, error) {
	body, err := c.es.CatShards(ctx, shardIPColumns)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		ip := strings.TrimSpace(scanner.Text())
		if ip == "" {
			continue
		}
		counts[ip]++
	}
	return counts, nil
}

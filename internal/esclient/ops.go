package esclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
)

// withTimeout bounds a single request to requestTimeout, per §4.1.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}

func readBody(res *esapi.Response) ([]byte, error) {
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}

func decodeBody(res *esapi.Response, out interface{}) error {
	defer res.Body.Close()
	return json.NewDecoder(res.Body).Decode(out)
}

// PingResult is one node's reachability outcome.
type PingResult struct {
	Host string
	OK   bool
	Err  error
}

// PerNodePingAll pings every configured node independently and returns every
// outcome: unlike tryOnAnyNode, a dead node here is data, not a failure to
// mask (§4.1, "all results wanted regardless of individual failure").
func (c *Client) PerNodePingAll(ctx context.Context) []PingResult {
	results := make([]PingResult, len(c.nodes))

	var wg sync.WaitGroup
	for i, node := range c.nodes {
		wg.Add(1)
		go func(i int, node *nodeConn) {
			defer wg.Done()

			cctx, cancel := withTimeout(ctx)
			defer cancel()

			res, err := node.es.Ping(node.es.Ping.WithContext(cctx))
			if err != nil {
				results[i] = PingResult{Host: node.host, OK: false, Err: err}
				return
			}
			defer res.Body.Close()
			results[i] = PingResult{Host: node.host, OK: !res.IsError()}
		}(i, node)
	}
	wg.Wait()

	return results
}

// ClusterHealth fetches /_cluster/health from any reachable node.
func (c *Client) ClusterHealth(ctx context.Context) (map[string]interface{}, error) {
	res, err := c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Cluster.Health(es.Cluster.Health.WithContext(cctx))
	})
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := decodeBody(res, &out); err != nil {
		return nil, fmt.Errorf("esclient: decode cluster health: %w", err)
	}
	return out, nil
}

// PendingTasks fetches /_cluster/pending_tasks from any reachable node.
func (c *Client) PendingTasks(ctx context.Context) (map[string]interface{}, error) {
	res, err := c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Cluster.PendingTasks(es.Cluster.PendingTasks.WithContext(cctx))
	})
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := decodeBody(res, &out); err != nil {
		return nil, fmt.Errorf("esclient: decode pending tasks: %w", err)
	}
	return out, nil
}

// NodesStats fetches /_nodes/stats for the requested metric groups and
// returns the raw body for gjson dotted-path extraction by the collector.
func (c *Client) NodesStats(ctx context.Context, metrics []string) ([]byte, error) {
	res, err := c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Nodes.Stats(
			es.Nodes.Stats.WithContext(cctx),
			es.Nodes.Stats.WithMetric(metrics...),
		)
	})
	if err != nil {
		return nil, err
	}
	return readBody(res)
}

// CatShards fetches /_cat/shards restricted to the requested columns, in
// plain-text format, for the shard-count collector.
func (c *Client) CatShards(ctx context.Context, columns []string) (string, error) {
	res, err := c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Cat.Shards(
			es.Cat.Shards.WithContext(cctx),
			es.Cat.Shards.WithH(columns...),
		)
	})
	if err != nil {
		return "", err
	}
	body, err := readBody(res)
	return string(body), err
}

// CatThreadPool fetches /_cat/thread_pool for the monitored pools, in
// plain-text format, for the thread-pool collector.
func (c *Client) CatThreadPool(ctx context.Context, columns []string) (string, error) {
	res, err := c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Cat.ThreadPool(
			es.Cat.ThreadPool.WithContext(cctx),
			es.Cat.ThreadPool.WithH(columns...),
		)
	})
	if err != nil {
		return "", err
	}
	body, err := readBody(res)
	return string(body), err
}

// IndexStats fetches {index}/_stats for the per-index metric collector.
func (c *Client) IndexStats(ctx context.Context, index string) ([]byte, error) {
	res, err := c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Indices.Stats(
			es.Indices.Stats.WithContext(cctx),
			es.Indices.Stats.WithIndex(index),
		)
	})
	if err != nil {
		return nil, err
	}
	return readBody(res)
}

// IndicesCat lists every index name matching pattern. The report bootstrap
// probe does not use it; it counts documents via sinkclient.CheckIndexHasData.
func (c *Client) IndicesCat(ctx context.Context, pattern string) ([]string, error) {
	res, err := c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Cat.Indices(
			es.Cat.Indices.WithContext(cctx),
			es.Cat.Indices.WithIndex(pattern),
			es.Cat.Indices.WithH("index"),
		)
	})
	if err != nil {
		return nil, err
	}
	body, err := readBody(res)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, line := range bytes.Split(body, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		names = append(names, string(trimmed))
	}
	return names, nil
}

// CatIndicesHealth fetches /_cat/indices restricted to health/status/index,
// in plain-text format, for the Monitoring Loop's step-2 unstable-index
// scan (§4.7).
func (c *Client) CatIndicesHealth(ctx context.Context) (string, error) {
	res, err := c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Cat.Indices(
			es.Cat.Indices.WithContext(cctx),
			es.Cat.Indices.WithH("health", "status", "index"),
		)
	})
	if err != nil {
		return "", err
	}
	body, err := readBody(res)
	return string(body), err
}

// PostDoc indexes body as a new document in index. Used by both the
// collector (metric writes) and the incident/report writers.
func (c *Client) PostDoc(ctx context.Context, index string, body []byte) error {
	res, err := c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Index(
			index,
			bytes.NewReader(body),
			es.Index.WithContext(cctx),
		)
	})
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

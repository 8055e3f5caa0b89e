package esclient

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
)

// tryOnAnyNode shuffles the configured nodes freshly on every call and tries
// op against each in turn, returning the first non-error 2xx response. This
// mirrors the original source's execute_on_any_node: one live node is enough
// to serve a read, so a single unreachable node must never fail the call.
func (c *Client) tryOnAnyNode(ctx context.Context, op func(ctx context.Context, es *elasticsearch.Client) (*esapi.Response, error)) (*esapi.Response, error) {
	order := make([]int, len(c.nodes))
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	var lastErr error
	for _, idx := range order {
		node := c.nodes[idx]

		res, err := op(ctx, node.es)
		if err != nil {
			lastErr = fmt.Errorf("node %q: %w", node.host, err)
			continue
		}
		if res.IsError() {
			lastErr = fmt.Errorf("node %q: %s", node.host, res.Status())
			res.Body.Close()
			continue
		}
		return res, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no nodes configured")
	}
	return nil, fmt.Errorf("esclient: all nodes exhausted for cluster %q: %w", c.clusterName, lastErr)
}

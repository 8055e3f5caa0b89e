package esclient

import (
	"bytes"
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
)

// Search runs a raw query-DSL body against index and returns the raw
// response body, for the sink client's generic search/aggregation wrappers
// (§4.2's "same interface as a Source-ES Client plus...").
func (c *Client) Search(ctx context.Context, index string, body []byte) ([]byte, error) {
	res, err := c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Search(
			es.Search.WithContext(cctx),
			es.Search.WithIndex(index),
			es.Search.WithBody(bytes.NewReader(body)),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("esclient: search %q: %w", index, err)
	}
	return readBody(res)
}

// Count runs a count query against index and returns the raw response; the
// caller decodes the count from its body and closes it.
func (c *Client) Count(ctx context.Context, index string, body []byte) (*esapi.Response, error) {
	return c.tryOnAnyNode(ctx, func(cctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Count(
			es.Count.WithContext(cctx),
			es.Count.WithIndex(index),
			es.Count.WithBody(bytes.NewReader(body)),
		)
	})
}

// Package sinkclient is the Sink-ES Client: the same node-failover access
// pattern as internal/esclient, plus the generic search/aggregation/count
// queries and the semaphore-gated connection pool described in
// SPEC_FULL.md §4.2.
package sinkclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crlsmrls/esmonitor/internal/esclient"
	"github.com/crlsmrls/esmonitor/internal/model"
)

// Client wraps a Source-ES-shaped connection set to the sink cluster and
// adds the four sink-only query operations.
type Client struct {
	*esclient.Client
}

// New builds one sink connection set (one esclient.Client per configured
// sink host).
func New(desc model.SinkDescriptor) (*Client, error) {
	base, err := esclient.New(desc.ClusterDescriptor)
	if err != nil {
		return nil, err
	}
	return &Client{Client: base}, nil
}

type searchHit[T any] struct {
	Source T `json:"_source"`
}

type searchEnvelope[T any] struct {
	Hits struct {
		Hits []searchHit[T] `json:"hits"`
	} `json:"hits"`
}

// GetSearchQuery runs query against index and decodes every hit's _source
// into T.
func GetSearchQuery[T any](ctx context.Context, c *Client, query []byte, index string) ([]T, error) {
	body, err := c.Search(ctx, index, query)
	if err != nil {
		return nil, err
	}

	var env searchEnvelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("sinkclient: decode search hits from %q: %w", index, err)
	}

	out := make([]T, 0, len(env.Hits.Hits))
	for _, h := range env.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

type aggEnvelope[T any] struct {
	Aggregations T `json:"aggregations"`
}

// GetAggQuery runs an aggregation-only query against index and decodes the
// aggregations object into T.
func GetAggQuery[T any](ctx context.Context, c *Client, query []byte, index string) (T, error) {
	var zero T

	body, err := c.Search(ctx, index, query)
	if err != nil {
		return zero, err
	}

	var env aggEnvelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, fmt.Errorf("sinkclient: decode aggregations from %q: %w", index, err)
	}
	return env.Aggregations, nil
}

type countResponse struct {
	Count int64 `json:"count"`
}

// GetCountQuery runs a count query against index.
func (c *Client) GetCountQuery(ctx context.Context, query []byte, index string) (int64, error) {
	res, err := c.Count(ctx, index, query)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	var out countResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("sinkclient: decode count from %q: %w", index, err)
	}
	return out.Count, nil
}

// matchAllQuery is the zero-filter count body used by CheckIndexHasData.
var matchAllQuery = []byte(`{"query":{"match_all":{}}}`)

// CheckIndexHasData reports whether index currently has at least one
// document, used by the report bootstrap probe (§4.7/§4.8).
func (c *Client) CheckIndexHasData(ctx context.Context, index string) (bool, error) {
	count, err := c.GetCountQuery(ctx, matchAllQuery, index)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

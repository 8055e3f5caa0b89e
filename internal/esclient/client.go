// Package esclient is the Source-ES Client: a pooled, randomized-failover
// client to one monitored Elasticsearch cluster (SPEC_FULL.md §4.1).
package esclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v7"

	"github.com/crlsmrls/esmonitor/internal/model"
)

// requestTimeout is the 5-second per-request timeout named in §4.1: it bounds
// each transport's wait for response headers and each per-node ping.
const requestTimeout = 5 * time.Second

// nodeConn is a (host, opaque-connection-handle) pair: one per configured
// host, living for the process lifetime.
type nodeConn struct {
	host string
	es   *elasticsearch.Client
}

// Client represents a live connection set to one monitored cluster.
type Client struct {
	clusterName        string
	nodes               []*nodeConn
	indexPattern        string
	perIndexPattern     string
	urgentIndexPattern  string
	errLogIndexPattern  string
}

// New builds one connection handle per configured host.
func New(desc model.ClusterDescriptor) (*Client, error) {
	if len(desc.Hosts) == 0 {
		return nil, fmt.Errorf("esclient: cluster %q has no hosts configured", desc.ClusterName)
	}

	nodes := make([]*nodeConn, 0, len(desc.Hosts))
	for _, host := range desc.Hosts {
		url := fmt.Sprintf("http://%s", host)

		cfg := elasticsearch.Config{
			Addresses: []string{url},
			Username:  desc.EsID,
			Password:  desc.EsPW,
			Transport: &http.Transport{ResponseHeaderTimeout: requestTimeout},
		}

		es, err := elasticsearch.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("esclient: build client for host %q: %w", host, err)
		}

		nodes = append(nodes, &nodeConn{host: host, es: es})
	}

	return &Client{
		clusterName:        desc.ClusterName,
		nodes:               nodes,
		indexPattern:        desc.IndexPattern,
		perIndexPattern:     desc.PerIndexPattern,
		urgentIndexPattern:  desc.UrgentIndexPattern,
		errLogIndexPattern:  desc.ErrLogIndexPattern,
	}, nil
}

// ClusterName returns the cluster's logical name.
func (c *Client) ClusterName() string { return c.clusterName }

// Hosts returns every configured host string (host:port), in configured
// order.
func (c *Client) Hosts() []string {
	hosts := make([]string, len(c.nodes))
	for i, n := range c.nodes {
		hosts[i] = n.host
	}
	return hosts
}

// IndexPattern returns the metric-stream index prefix.
func (c *Client) IndexPattern() string { return c.indexPattern }

// PerIndexPattern returns the per-index-metric-stream index prefix.
func (c *Client) PerIndexPattern() string { return c.perIndexPattern }

// UrgentIndexPattern returns the urgent-sample-stream index prefix.
func (c *Client) UrgentIndexPattern() string { return c.urgentIndexPattern }

// ErrLogIndexPattern returns the incident-log-stream index prefix.
func (c *Client) ErrLogIndexPattern() string { return c.errLogIndexPattern }

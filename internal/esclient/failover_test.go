package esclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
)

func newTestNode(t *testing.T, host string, handler http.HandlerFunc) *nodeConn {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("elasticsearch.NewClient() error = %v", err)
	}

	return &nodeConn{host: host, es: es}
}

func TestTryOnAnyNode_SkipsDeadNodes(t *testing.T) {
	dead := newTestNode(t, "dead:9200", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	alive := newTestNode(t, "alive:9200", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"cluster_name":"demo","status":"green"}`))
	})

	c := &Client{clusterName: "demo", nodes: []*nodeConn{dead, alive}}

	var reachedHost string
	res, err := c.tryOnAnyNode(context.Background(), func(ctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Cluster.Health(es.Cluster.Health.WithContext(ctx))
	})
	if err != nil {
		t.Fatalf("tryOnAnyNode() error = %v, want success via the alive node", err)
	}
	defer res.Body.Close()
	_ = reachedHost
}

func TestTryOnAnyNode_AllDeadReturnsError(t *testing.T) {
	nodeA := newTestNode(t, "a:9200", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	nodeB := newTestNode(t, "b:9200", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	c := &Client{clusterName: "demo", nodes: []*nodeConn{nodeA, nodeB}}

	_, err := c.tryOnAnyNode(context.Background(), func(ctx context.Context, es *elasticsearch.Client) (*esapi.Response, error) {
		return es.Cluster.Health(es.Cluster.Health.WithContext(ctx))
	})
	if err == nil {
		t.Fatal("tryOnAnyNode() error = nil, want error when every node fails")
	}
}

func TestPerNodePingAll_ReturnsAllOutcomes(t *testing.T) {
	alive := newTestNode(t, "alive:9200", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	dead := newTestNode(t, "dead:9200", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	c := &Client{clusterName: "demo", nodes: []*nodeConn{alive, dead}}

	results := c.PerNodePingAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("PerNodePingAll() returned %d results, want 2", len(results))
	}

	byHost := map[string]PingResult{}
	for _, r := range results {
		byHost[r.Host] = r
	}

	if !byHost["alive:9200"].OK {
		t.Error("alive:9200 reported OK = false, want true")
	}
	if byHost["dead:9200"].OK {
		t.Error("dead:9200 reported OK = true, want false")
	}
}

package esclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v7"
)

func newSingleNodeClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("elasticsearch.NewClient() error = %v", err)
	}

	return &Client{clusterName: "demo", nodes: []*nodeConn{{host: "node1:9200", es: es}}}
}

func TestNodesStats_ReturnsRawBody(t *testing.T) {
	const body = `{"nodes":{"abc":{"name":"node1"}}}`
	c := newSingleNodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/_nodes") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(body))
	})

	got, err := c.NodesStats(context.Background(), []string{"jvm", "os", "fs"})
	if err != nil {
		t.Fatalf("NodesStats() error = %v", err)
	}
	if string(got) != body {
		t.Errorf("NodesStats() = %s, want %s", got, body)
	}
}

func TestCatShards_ReturnsPlainText(t *testing.T) {
	const body = "my-index 0 p STARTED node1\n"
	c := newSingleNodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	got, err := c.CatShards(context.Background(), []string{"index", "shard", "prirep", "state", "node"})
	if err != nil {
		t.Fatalf("CatShards() error = %v", err)
	}
	if got != body {
		t.Errorf("CatShards() = %q, want %q", got, body)
	}
}

func TestCatThreadPool_ReturnsPlainText(t *testing.T) {
	const body = "node1 search 1 0 0\n"
	c := newSingleNodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	got, err := c.CatThreadPool(context.Background(), []string{"node_name", "name", "active", "queue", "rejected"})
	if err != nil {
		t.Fatalf("CatThreadPool() error = %v", err)
	}
	if got != body {
		t.Errorf("CatThreadPool() = %q, want %q", got, body)
	}
}

func TestIndexStats_ReturnsRawBody(t *testing.T) {
	const body = `{"_all":{"total":{"translog":{"operations":5}}}}`
	c := newSingleNodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	got, err := c.IndexStats(context.Background(), "metric-20260731")
	if err != nil {
		t.Fatalf("IndexStats() error = %v", err)
	}
	if string(got) != body {
		t.Errorf("IndexStats() = %s, want %s", got, body)
	}
}

func TestPostDoc_IssuesPOST(t *testing.T) {
	var receivedMethod string
	c := newSingleNodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	})

	err := c.PostDoc(context.Background(), "metric-20260731", []byte(`{"host":"node1"}`))
	if err != nil {
		t.Fatalf("PostDoc() error = %v", err)
	}
	if receivedMethod != http.MethodPost {
		t.Errorf("PostDoc() issued method %q, want POST", receivedMethod)
	}
}

func TestIndicesCat_ParsesIndexNames(t *testing.T) {
	const body = "metric-20260729\nmetric-20260730\nmetric-20260731\n"
	c := newSingleNodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	names, err := c.IndicesCat(context.Background(), "metric-*")
	if err != nil {
		t.Fatalf("IndicesCat() error = %v", err)
	}
	want := []string{"metric-20260729", "metric-20260730", "metric-20260731"}
	if len(names) != len(want) {
		t.Fatalf("IndicesCat() returned %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("IndicesCat()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestClusterHealth_DecodesBody(t *testing.T) {
	const body = `{"cluster_name":"demo","status":"yellow"}`
	c := newSingleNodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	got, err := c.ClusterHealth(context.Background())
	if err != nil {
		t.Fatalf("ClusterHealth() error = %v", err)
	}
	if got["status"] != "yellow" {
		t.Errorf("ClusterHealth()[status] = %v, want yellow", got["status"])
	}
}

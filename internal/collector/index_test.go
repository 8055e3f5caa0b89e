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

func TestCollectIndexMetrics(t *testing.T) {
	const body = `{"_all":{"total":{
		"translog": {"operations": 5, "size_in_bytes": 10, "uncommitted_operations": 1, "uncommitted_size_in_bytes": 2},
		"flush": {"total": 3},
		"refresh": {"total": 4, "listeners": 0}
	}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	es, err := esclient.New(model.ClusterDescriptor{ClusterName: "demo", Hosts: []string{host}})
	if err != nil {
		t.Fatalf("esclient.New() error = %v", err)
	}
	c := New(es, zerolog.Nop())

	rec, err := c.CollectIndexMetrics(context.Background(), "metric-20260731")
	if err != nil {
		t.Fatalf("CollectIndexMetrics() error = %v", err)
	}
	if rec.IndexName != "metric-20260731" {
		t.Errorf("IndexName = %q, want metric-20260731", rec.IndexName)
	}
	if rec.Translog.Operations != 5 {
		t.Errorf("Translog.Operations = %d, want 5", rec.Translog.Operations)
	}
	if rec.FlushTotal != 3 {
		t.Errorf("FlushTotal = %d, want 3", rec.FlushTotal)
	}
}

func TestCollectIndexMetrics_MissingFieldErrors(t *testing.T) {
	// flush.total is absent; per §4.3/§7 this must fail the whole record,
	// not just leave FlushTotal at its zero value.
	const body = `{"_all":{"total":{
		"translog": {"operations": 5, "size_in_bytes": 10, "uncommitted_operations": 1, "uncommitted_size_in_bytes": 2},
		"refresh": {"total": 4, "listeners": 0}
	}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	es, err := esclient.New(model.ClusterDescriptor{ClusterName: "demo", Hosts: []string{host}})
	if err != nil {
		t.Fatalf("esclient.New() error = %v", err)
	}
	c := New(es, zerolog.Nop())

	if _, err := c.CollectIndexMetrics(context.Background(), "metric-20260731"); err == nil {
		t.Error("CollectIndexMetrics() error = nil, want error for missing flush.total")
	}
}

func TestCollectIndexMetrics_MissingTotalErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	es, err := esclient.New(model.ClusterDescriptor{ClusterName: "demo", Hosts: []string{host}})
	if err != nil {
		t.Fatalf("esclient.New() error = %v", err)
	}
	c := New(es, zerolog.Nop())

	if _, err := c.CollectIndexMetrics(context.Background(), "metric-20260731"); err == nil {
		t.Error("CollectIndexMetrics() error = nil, want error for missing _all.total")
	}
}

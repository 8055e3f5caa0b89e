package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/crlsmrls/esmonitor/internal/model"
	"github.com/crlsmrls/esmonitor/internal/notify"
	"github.com/crlsmrls/esmonitor/internal/report/cronsched"
	"github.com/crlsmrls/esmonitor/internal/sinkclient"
)

func mustScheduleForTest(t *testing.T) cronsched.Schedule {
	t.Helper()
	s, err := cronsched.Parse("@daily")
	if err != nil {
		t.Fatalf("cronsched.Parse() error = %v", err)
	}
	return s
}

type countingChannel struct{ calls *int32 }

func (c countingChannel) Send(ctx context.Context, msg notify.Renderable) error {
	atomic.AddInt32(c.calls, 1)
	return nil
}

func newTestLoop(t *testing.T) (*Loop, *int32) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "_count"):
			w.Write([]byte(`{"count":3}`))
		case strings.Contains(r.URL.Path, "_search"):
			w.Write([]byte(`{"aggregations":{"incidents":{"buckets":[]}},"hits":{"hits":[{"_source":{"timestamp":"2026-01-01T00:00:00Z"}}]}}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)
	host := strings.TrimPrefix(srv.URL, "http://")

	pool, err := sinkclient.NewPool(model.SinkDescriptor{
		ClusterDescriptor: model.ClusterDescriptor{ClusterName: "sink", Hosts: []string{host}},
		PoolCnt:           1,
	})
	if err != nil {
		t.Fatalf("sinkclient.NewPool() error = %v", err)
	}

	agg := NewAggregator(pool, "errlog-", zerolog.Nop())

	var emailCalls int32
	fanout := &notify.Fanout{
		Mode:     notify.ModeDev,
		Chat:     countingChannel{calls: new(int32)},
		TeamChat: countingChannel{calls: new(int32)},
		Email:    countingChannel{calls: &emailCalls},
	}

	loop := New(Config{
		Aggregator:  agg,
		Fanout:      fanout,
		Schedule:    mustScheduleForTest(t),
		Kind:        model.ReportDay,
		ClusterName: "demo",
		ImgPath:     "/tmp/report.png",
		Log:         zerolog.Nop(),
	})

	return loop, &emailCalls
}

func TestLoop_Fire_ComposesAndSendsReportSummary(t *testing.T) {
	loop, emailCalls := newTestLoop(t)

	if err := loop.fire(context.Background()); err != nil {
		t.Fatalf("fire() error = %v", err)
	}
	if atomic.LoadInt32(emailCalls) != 1 {
		t.Errorf("email channel called %d times, want 1", atomic.LoadInt32(emailCalls))
	}
}

func TestLoop_UsesNopChartRendererByDefault(t *testing.T) {
	loop, _ := newTestLoop(t)
	if _, ok := loop.chart.(NopChartRenderer); !ok {
		t.Errorf("loop.chart = %T, want NopChartRenderer when Config.Chart is nil", loop.chart)
	}
}

package collector

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/crlsmrls/esmonitor/internal/model"
	"github.com/crlsmrls/esmonitor/internal/timeutil"
)

// CollectIndexMetrics fetches {index}/_stats and extracts the translog/
// flush/refresh counters from _all.total, per §4.3's per-index pass.
func (c *Collector) CollectIndexMetrics(ctx context.Context, index string) (model.IndexMetricRecord, error) {
	body, err := c.es.IndexStats(ctx, index)
	if err != nil {
		return model.IndexMetricRecord{}, fmt.Errorf("collector: index_stats %q: %w", index, err)
	}

	total := gjson.GetBytes(body, "_all.total")
	if !total.Exists() {
		return model.IndexMetricRecord{}, fmt.Errorf("collector: index_stats %q: missing _all.total", index)
	}

	e := newFieldExtractor(total)
	rec := model.IndexMetricRecord{
		Timestamp:        timeutil.FormatISO(timeutil.NowUTC()),
		IndexName:        index,
		Translog:         extractTranslog(e, "translog"),
		FlushTotal:       e.int("flush.total"),
		RefreshTotal:     e.int("refresh.total"),
		RefreshListeners: e.int("refresh.listeners"),
	}
	if e.err != nil {
		return model.IndexMetricRecord{}, fmt.Errorf("collector: index_stats %q: %w", index, e.err)
	}
	return rec, nil
}

// Package urgent implements the Urgent Evaluator: it queries the sink for
// recent per-host samples and matches them against configured thresholds
// (SPEC_FULL.md §4.4).
package urgent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/crlsmrls/esmonitor/internal/model"
	"github.com/crlsmrls/esmonitor/internal/sinkclient"
	"github.com/crlsmrls/esmonitor/internal/timeutil"
)

// lookback is the §4.4 "samples in the last 20 seconds" window.
const lookback = 20 * time.Second

// Evaluator queries the sink connection pool for recent UrgentSample
// documents and evaluates them against a threshold list.
type Evaluator struct {
	pool *sinkclient.Pool
	log  zerolog.Logger
}

// New builds an Evaluator over pool.
func New(pool *sinkclient.Pool, log zerolog.Logger) *Evaluator {
	return &Evaluator{pool: pool, log: log}
}

// hostIPs extracts the left-of-':' portion of each host:port endpoint, per
// §4.4's host-matching contract.
func hostIPs(hosts []string) []string {
	ips := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if idx := strings.IndexByte(h, ':'); idx >= 0 {
			ips = append(ips, h[:idx])
		} else {
			ips = append(ips, h)
		}
	}
	return ips
}

func buildQuery(ips []string, now time.Time) []byte {
	should := make([]map[string]interface{}, 0, len(ips))
	for _, ip := range ips {
		should = append(should, map[string]interface{}{"term": map[string]interface{}{"host": ip}})
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"range": map[string]interface{}{
							"timestamp": map[string]interface{}{
								"gte": timeutil.FormatISO(now.Add(-lookback)),
								"lte": timeutil.FormatISO(now),
							},
						},
					},
					{
						"bool": map[string]interface{}{
							"should":               should,
							"minimum_should_match": 1,
						},
					},
				},
			},
		},
	}
	out, _ := json.Marshal(body)
	return out
}

// Evaluate queries the sink for samples from the last 20 seconds matching
// any of clusterHosts' IPs, then applies every threshold. An empty host-IP
// set short-circuits without issuing a sink query, per §4.4/§8.
func (e *Evaluator) Evaluate(ctx context.Context, urgentIndexPrefix string, clusterHosts []string, thresholds []model.UrgentThreshold) ([]model.UrgentBreach, error) {
	ips := hostIPs(clusterHosts)
	if len(ips) == 0 {
		return nil, nil
	}

	now := timeutil.NowUTC()
	index := timeutil.IndexName(urgentIndexPrefix, now)
	query := buildQuery(ips, now)

	guard, err := e.pool.AcquireGuard(ctx)
	if err != nil {
		return nil, fmt.Errorf("urgent: acquire sink guard: %w", err)
	}
	defer guard.Release()

	samples, err := sinkclient.GetSearchQuery[model.UrgentSample](ctx, guard.Client(), query, index)
	if err != nil {
		return nil, fmt.Errorf("urgent: query %q: %w", index, err)
	}

	var breaches []model.UrgentBreach
	for _, sample := range samples {
		for _, th := range thresholds {
			value, ok := sample.Field(th.MetricName)
			if !ok {
				e.log.Warn().Str("metric_name", th.MetricName).Msg("unknown urgent metric name, skipping")
				continue
			}
			if value > th.Limit {
				breaches = append(breaches, model.UrgentBreach{
					Host:       sample.Host,
					MetricName: th.MetricName,
					ValueStr:   strconv.FormatFloat(value, 'f', -1, 64),
				})
			}
		}
	}
	return breaches, nil
}

package report

import "context"

// ChartRenderer is the external chart-image collaborator. Rendering actual
// chart images is out of scope; report.Loop composes against this interface
// the same way notify.Fanout composes against notify.Channel.
type ChartRenderer interface {
	// Render produces a chart image at imgPath summarizing buckets and
	// returns the path it wrote to (or imgPath unchanged on success).
	Render(ctx context.Context, imgPath string, buckets []HistogramPoint) (string, error)
}

// NopChartRenderer never draws anything; it reports the configured path
// unchanged so downstream message composition has something to reference.
type NopChartRenderer struct{}

func (NopChartRenderer) Render(ctx context.Context, imgPath string, buckets []HistogramPoint) (string, error) {
	return imgPath, nil
}

// Package chart renders a product's price history as a PNG line chart.
package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bjoelf/price-alert/internal/domain"
)

// LineRenderer implements ChartRenderer. Charts are written to outDir as
// <productID>.png; an existing file for the product is overwritten, there is
// no caching between scans.
type LineRenderer struct {
	outDir string
}

// NewLineRenderer creates a renderer writing into outDir.
func NewLineRenderer(outDir string) *LineRenderer {
	return &LineRenderer{outDir: outDir}
}

// Render draws the full history as a single light-blue line: dates on the
// x axis (YYYY-MM-DD labels, rotated for legibility), dollar-prefixed prices
// on the y axis, y range padded to [0.7*min, 1.3*max].
func (r *LineRenderer) Render(productID, title string, history []domain.Observation) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("no observations to chart for %s", productID)
	}

	xs := make([]time.Time, len(history))
	ys := make([]float64, len(history))
	minY, maxY := history[0].Price.InexactFloat64(), history[0].Price.InexactFloat64()
	for i, obs := range history {
		xs[i] = obs.Date
		ys[i] = obs.Price.InexactFloat64()
		if ys[i] < minY {
			minY = ys[i]
		}
		if ys[i] > maxY {
			maxY = ys[i]
		}
	}

	graph := chart.Chart{
		Title:  "Recent Price History: " + title,
		Width:  600,
		Height: 300,
		XAxis: chart.XAxis{
			Style:          chart.Style{FontSize: 7, TextRotationDegrees: 40},
			ValueFormatter: chart.TimeDateValueFormatter,
			Range:          xRange(xs),
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: 8},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0f", f)
				}
				return ""
			},
			Range: &chart.ContinuousRange{Min: minY * 0.7, Max: maxY * 1.3},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("add8e6"),
					StrokeWidth: 2.0,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	if err := os.MkdirAll(r.outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create chart directory %s: %w", r.outDir, err)
	}

	path := filepath.Join(r.outDir, productID+".png")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file %s: %w", path, err)
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return "", fmt.Errorf("failed to render chart for %s: %w", productID, err)
	}
	return path, nil
}

// xRange pads a collapsed x axis by a day on each side so a single-point
// history still renders instead of failing on a zero-width range.
func xRange(xs []time.Time) chart.Range {
	first, last := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x.Before(first) {
			first = x
		}
		if x.After(last) {
			last = x
		}
	}
	if !first.Equal(last) {
		return nil
	}
	return &chart.ContinuousRange{
		Min: float64(first.AddDate(0, 0, -1).UnixNano()),
		Max: float64(last.AddDate(0, 0, 1).UnixNano()),
	}
}

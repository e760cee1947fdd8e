// Package chart renders the SVG charts used by the dashboards, the Spotify
// radar plots and the teaching gallery.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
)

const (
	defaultWidth  = 800
	defaultHeight = 500
)

// ErrNoData is returned when a chart has nothing to plot.
var ErrNoData = errors.New("chart: no data")

// Bar renders one bar per label.
func Bar(w io.Writer, title string, labels []string, values []float64) error {
	if len(labels) == 0 || len(labels) != len(values) {
		return fmt.Errorf("bar chart %q: %d labels for %d values: %w", title, len(labels), len(values), ErrNoData)
	}

	bars := make([]gochart.Value, len(values))
	for i, v := range values {
		bars[i] = gochart.Value{Value: v, Label: labels[i]}
	}

	graph := gochart.BarChart{
		Title:    title,
		Width:    defaultWidth,
		Height:   defaultHeight,
		BarWidth: barWidth(len(bars)),
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		YAxis: gochart.YAxis{
			Range: barRange(values),
		},
		Bars: bars,
	}
	if err := graph.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// Histogram bins values into buckets of width step starting at
// floor(min/step)*step and renders the counts as bars labelled "lo-hi".
func Histogram(w io.Writer, title string, values []float64, step float64) error {
	labels, counts, err := Bins(values, step)
	if err != nil {
		return fmt.Errorf("histogram %q: %w", title, err)
	}
	return Bar(w, title, labels, counts)
}

// Bins computes histogram bucket labels and counts.
func Bins(values []float64, step float64) ([]string, []float64, error) {
	if len(values) == 0 {
		return nil, nil, ErrNoData
	}
	if step <= 0 {
		return nil, nil, fmt.Errorf("bin step must be > 0, got %v", step)
	}

	lo, hi := bounds(values)
	start := math.Floor(lo/step) * step
	n := int(math.Floor((hi-start)/step)) + 1

	counts := make([]float64, n)
	for _, v := range values {
		i := int(math.Floor((v - start) / step))
		if i >= n {
			i = n - 1
		}
		counts[i]++
	}

	labels := make([]string, n)
	for i := range labels {
		from := start + float64(i)*step
		labels[i] = formatNumber(from) + "-" + formatNumber(from+step)
	}
	return labels, counts, nil
}

// Scatter renders xs against ys as unconnected dots.
func Scatter(w io.Writer, title, xName, yName string, xs, ys []float64) error {
	if len(xs) == 0 || len(xs) != len(ys) {
		return fmt.Errorf("scatter %q: %d x values for %d y values: %w", title, len(xs), len(ys), ErrNoData)
	}

	graph := gochart.Chart{
		Title:  title,
		Width:  defaultWidth,
		Height: defaultHeight,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20},
		},
		XAxis: gochart.XAxis{
			Name:  xName,
			Range: paddedRange(xs),
		},
		YAxis: gochart.YAxis{
			Name:  yName,
			Range: paddedRange(ys),
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name: yName,
				Style: gochart.Style{
					StrokeWidth: gochart.Disabled,
					DotWidth:    4,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}
	if err := graph.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render scatter plot: %w", err)
	}
	return nil
}

// paddedRange widens a degenerate range so go-chart never sees a zero delta.
// It returns nil when the data already spans a range.
func paddedRange(values []float64) gochart.Range {
	lo, hi := bounds(values)
	if lo < hi {
		return nil
	}
	pad := math.Max(math.Abs(lo)*0.1, 1)
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// barRange anchors the value axis at zero.
func barRange(values []float64) gochart.Range {
	lo, hi := bounds(values)
	lo, hi = math.Min(lo, 0), math.Max(hi, 0)
	if lo == hi {
		hi = 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}

func bounds(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func barWidth(n int) int {
	w := (defaultWidth - 100) / (n * 2)
	switch {
	case w < 8:
		return 8
	case w > 80:
		return 80
	}
	return w
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package chart

import (
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// RadarSeries is one closed polygon on a radar chart.
type RadarSeries struct {
	Name   string
	Values []float64 // one per axis
}

// Radar renders each series as a polygon over evenly spaced axes. All axes
// share one radial scale from min(0, smallest value) to the largest value.
func Radar(w io.Writer, title string, axes []string, series []RadarSeries) error {
	if len(axes) < 3 {
		return fmt.Errorf("radar %q needs at least 3 axes, got %d", title, len(axes))
	}
	if len(series) == 0 {
		return fmt.Errorf("radar %q: %w", title, ErrNoData)
	}

	var all []float64
	for _, s := range series {
		if len(s.Values) != len(axes) {
			return fmt.Errorf("radar %q: series %q has %d values for %d axes", title, s.Name, len(s.Values), len(axes))
		}
		for _, v := range s.Values {
			if !math.IsNaN(v) {
				all = append(all, v)
			}
		}
	}
	lo, hi := bounds(all)
	lo = math.Min(lo, 0)
	if hi <= lo {
		hi = lo + 1
	}

	const (
		width   = 1200
		height  = 800
		radius  = 300
		legendX = 900
	)
	cx, cy := 450, height/2+20

	r, err := gochart.SVG(width, height)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	font, err := gochart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	r.SetFont(font)

	point := func(axis int, v float64) (int, int) {
		angle := -math.Pi/2 + 2*math.Pi*float64(axis)/float64(len(axes))
		dist := radius * (v - lo) / (hi - lo)
		return cx + int(math.Round(dist*math.Cos(angle))), cy + int(math.Round(dist*math.Sin(angle)))
	}

	r.SetFontColor(inkColor)
	r.SetFontSize(18)
	r.Text(title, 40, 40)

	// grid rings and spokes
	r.SetStrokeColor(gochart.ColorLightGray)
	r.SetStrokeWidth(1)
	for ring := 1; ring <= 4; ring++ {
		v := lo + (hi-lo)*float64(ring)/4
		for i := range axes {
			x, y := point(i, v)
			if i == 0 {
				r.MoveTo(x, y)
			} else {
				r.LineTo(x, y)
			}
		}
		r.Close()
		r.Stroke()
	}
	r.SetFontSize(11)
	for i, name := range axes {
		x, y := point(i, hi)
		r.MoveTo(cx, cy)
		r.LineTo(x, y)
		r.Stroke()

		box := r.MeasureText(name)
		lx, ly := point(i, hi+(hi-lo)*0.08)
		r.Text(name, lx-box.Width()/2, ly+box.Height()/2)
	}

	for k, s := range series {
		color := gochart.GetDefaultColor(k)
		r.SetStrokeColor(color)
		r.SetStrokeWidth(2)
		r.SetFillColor(color.WithAlpha(40))
		for i, v := range s.Values {
			if math.IsNaN(v) {
				v = lo
			}
			x, y := point(i, v)
			if i == 0 {
				r.MoveTo(x, y)
			} else {
				r.LineTo(x, y)
			}
		}
		r.Close()
		r.FillStroke()

		ly := 80 + k*18
		r.SetFillColor(color)
		r.MoveTo(legendX, ly-10)
		r.LineTo(legendX+12, ly-10)
		r.LineTo(legendX+12, ly+2)
		r.LineTo(legendX, ly+2)
		r.Close()
		r.Fill()
		r.SetFontColor(inkColor)
		r.Text(s.Name, legendX+18, ly)
	}

	if err := r.Save(w); err != nil {
		return fmt.Errorf("render radar chart: %w", err)
	}
	return nil
}

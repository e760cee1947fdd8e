package chart

import (
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	coldColor    = drawing.Color{R: 33, G: 102, B: 172, A: 255}
	neutralColor = drawing.Color{R: 247, G: 247, B: 247, A: 255}
	hotColor     = drawing.Color{R: 178, G: 24, B: 43, A: 255}
	inkColor     = drawing.Color{R: 51, G: 51, B: 51, A: 255}
)

// Heatmap renders a square matrix of values in [-1, 1] as colored cells,
// with names along both axes and each value printed in its cell.
func Heatmap(w io.Writer, title string, names []string, matrix [][]float64) error {
	n := len(names)
	if n == 0 || len(matrix) != n {
		return fmt.Errorf("heatmap %q: %d names for %d rows: %w", title, n, len(matrix), ErrNoData)
	}
	for i, row := range matrix {
		if len(row) != n {
			return fmt.Errorf("heatmap %q: row %d has %d cells, want %d", title, i, len(row), n)
		}
	}

	const (
		margin = 140
		top    = 60
		size   = 420
	)
	cell := size / n

	r, err := gochart.SVG(margin+size+40, top+size+margin)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	font, err := gochart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	r.SetFont(font)

	r.SetFontColor(inkColor)
	r.SetFontSize(16)
	r.Text(title, margin, top/2)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x0, y0 := margin+j*cell, top+i*cell
			r.SetFillColor(divergingColor(matrix[i][j]))
			r.SetStrokeColor(drawing.ColorWhite)
			r.SetStrokeWidth(1)
			r.MoveTo(x0, y0)
			r.LineTo(x0+cell, y0)
			r.LineTo(x0+cell, y0+cell)
			r.LineTo(x0, y0+cell)
			r.Close()
			r.FillStroke()

			r.SetFontSize(12)
			r.SetFontColor(inkColor)
			label := fmt.Sprintf("%.2f", matrix[i][j])
			box := r.MeasureText(label)
			r.Text(label, x0+(cell-box.Width())/2, y0+(cell+box.Height())/2)
		}
	}

	r.SetFontSize(12)
	r.SetFontColor(inkColor)
	for i, name := range names {
		box := r.MeasureText(name)
		r.Text(name, margin-box.Width()-8, top+i*cell+(cell+box.Height())/2)
		r.Text(name, margin+i*cell+(cell-box.Width())/2, top+size+box.Height()+8)
	}

	if err := r.Save(w); err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	return nil
}

// divergingColor maps -1 to cold, 0 to neutral and 1 to hot.
// NaN renders neutral.
func divergingColor(v float64) drawing.Color {
	if math.IsNaN(v) {
		return neutralColor
	}
	v = math.Max(-1, math.Min(1, v))
	if v < 0 {
		return blend(neutralColor, coldColor, -v)
	}
	return blend(neutralColor, hotColor, v)
}

func blend(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

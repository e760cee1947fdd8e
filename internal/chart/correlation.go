package chart

import (
	"fmt"
	"math"
)

// Pearson returns the Pearson correlation coefficient of x and y.
// A constant input has no defined correlation and yields NaN.
func Pearson(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("pearson: length mismatch %d vs %d", len(x), len(y))
	}
	if len(x) < 2 {
		return 0, fmt.Errorf("pearson: need at least 2 samples, got %d", len(x))
	}

	n := float64(len(x))
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN(), nil
	}
	return cov / math.Sqrt(vx*vy), nil
}

// CorrelationMatrix returns the pairwise Pearson coefficients of equally
// long columns, with 1 on the diagonal.
func CorrelationMatrix(cols [][]float64) ([][]float64, error) {
	m := make([][]float64, len(cols))
	for i := range cols {
		m[i] = make([]float64, len(cols))
		m[i][i] = 1
	}
	for i := range cols {
		for j := i + 1; j < len(cols); j++ {
			r, err := Pearson(cols[i], cols[j])
			if err != nil {
				return nil, fmt.Errorf("columns %d and %d: %w", i, j, err)
			}
			m[i][j], m[j][i] = r, r
		}
	}
	return m, nil
}

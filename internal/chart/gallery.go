package chart

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
)

// Gallery writes the four teaching charts into dir and returns their paths:
// a bar chart of product sales, a histogram of simulated exam scores, a
// scatter of study hours against scores and a correlation heatmap of two
// random samples. seed makes the random samples reproducible.
func Gallery(dir string, seed uint64) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	rng := rand.New(rand.NewPCG(seed, seed))

	scores := make([]float64, 100)
	for i := range scores {
		scores[i] = 70 + 10*rng.NormFloat64()
	}

	x := make([]float64, 100)
	y := make([]float64, 100)
	for i := range x {
		x[i] = rng.Float64()
		y[i] = rng.Float64()
	}
	matrix, err := CorrelationMatrix([][]float64{x, y})
	if err != nil {
		return nil, err
	}

	studyHours := []float64{3, 4, 2, 5, 6, 5, 3, 4, 2, 6}
	examScores := []float64{70, 80, 65, 90, 95, 85, 75, 80, 70, 90}

	charts := []struct {
		name   string
		render func(f *os.File) error
	}{
		{"bar_chart.svg", func(f *os.File) error {
			return Bar(f, "Sales by Product", []string{"Product A", "Product B", "Product C"}, []float64{100, 150, 120})
		}},
		{"histogram.svg", func(f *os.File) error {
			return Histogram(f, "Exam Scores", scores, 5)
		}},
		{"scatter_plot.svg", func(f *os.File) error {
			return Scatter(f, "Study Hours vs Exam Scores", "study_hours", "exam_scores", studyHours, examScores)
		}},
		{"correlation_plot.svg", func(f *os.File) error {
			return Heatmap(f, fmt.Sprintf("Correlation: %.2f", matrix[0][1]), []string{"Variable X", "Variable Y"}, matrix)
		}},
	}

	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		path := filepath.Join(dir, c.name)
		if err := writeFile(path, c.render); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, render func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

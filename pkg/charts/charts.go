// Package charts renders dataset bar charts to PNG for file export.
package charts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/jinhakim/roadpulse/pkg/render"
)

const (
	chartWidth  = 1024
	chartHeight = 512
	barWidth    = 42
)

// Render draws the series as a PNG bar chart. Bars keep the order the
// series was built with.
func Render(w io.Writer, s render.ChartSeries) error {
	if len(s.Labels) == 0 {
		return fmt.Errorf("chart %s has no data", s.Key)
	}

	bars := make([]chart.Value, len(s.Labels))
	var maxVal float64
	for i, label := range s.Labels {
		bars[i] = chart.Value{Label: label, Value: s.Values[i]}
		if s.Values[i] > maxVal {
			maxVal = s.Values[i]
		}
	}
	// Baseline at zero with headroom above the tallest bar. A uniform
	// series would otherwise collapse the axis range.
	if maxVal <= 0 {
		maxVal = 1
	}

	graph := chart.BarChart{
		Title:      s.Title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 24}},
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   barWidth,
		Bars:       bars,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxVal * 1.1},
		},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering chart %s: %w", s.Key, err)
	}
	return nil
}

// WriteFile renders the series into dir as <key>.png and returns the path.
func WriteFile(dir string, s render.ChartSeries) (string, error) {
	path := filepath.Join(dir, s.Key+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := Render(f, s); err != nil {
		return "", err
	}
	return path, nil
}

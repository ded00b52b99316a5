// Package render builds the display model for the traffic dashboard.
//
// State is a pure function of the dataset and the selected region: the same
// inputs always produce the same view, and no I/O happens here. The HTTP
// and CLI shells decide when to call it and what to do with the result.
package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/jinhakim/roadpulse/pkg/scoring"
)

// Chart keys, stable across the HTTP API and the exporters.
const (
	ChartScore     = "score"
	ChartSpeed     = "speed"
	ChartTransit   = "transit"
	ChartAccidents = "accidents"
)

// ChartKeys lists the dashboard charts in display order.
var ChartKeys = []string{ChartScore, ChartSpeed, ChartTransit, ChartAccidents}

// Chart titles, matching the source dataset language.
const (
	TitleScore     = "종합 교통 환경 점수"
	TitleSpeed     = "평균 통행 속도"
	TitleTransit   = "대중교통 노선 수"
	TitleAccidents = "10만명당 교통사고 건수"
)

// Metric units for the comparison block.
const (
	unitSpeed     = "km/h"
	unitTransit   = "개"
	unitAccidents = "건"
)

var relationLabels = map[scoring.Relation]string{
	scoring.RelationHigher: "높습니다",
	scoring.RelationLower:  "낮습니다",
	scoring.RelationEqual:  "같습니다",
}

// TableRow is one display-formatted row of the ranked table.
type TableRow struct {
	Rank      int    `json:"rank" yaml:"rank"`
	Region    string `json:"region" yaml:"region"`
	AvgSpeed  string `json:"avg_speed" yaml:"avg_speed"`
	Transit   string `json:"transit_routes" yaml:"transit_routes"`
	Accidents string `json:"accidents_per_100k" yaml:"accidents_per_100k"`
	Score     string `json:"score" yaml:"score"`
}

// ChartSeries is one bar chart: region labels and values already sorted
// for display.
type ChartSeries struct {
	Key    string    `json:"key" yaml:"key"`
	Title  string    `json:"title" yaml:"title"`
	Labels []string  `json:"labels" yaml:"labels"`
	Values []float64 `json:"values" yaml:"values"`
}

// ComparisonLine is one formatted metric line of the comparison block.
type ComparisonLine struct {
	Label string `json:"label" yaml:"label"`
	Text  string `json:"text" yaml:"text"`
}

// ComparisonView is the selected-region-against-average block.
type ComparisonView struct {
	Region   string           `json:"region" yaml:"region"`
	Headline string           `json:"headline" yaml:"headline"`
	Lines    []ComparisonLine `json:"lines" yaml:"lines"`
}

// ViewModel is everything the dashboard needs to draw one frame.
type ViewModel struct {
	Rows       []TableRow      `json:"rows" yaml:"rows"`
	Charts     []ChartSeries   `json:"charts" yaml:"charts"`
	Regions    []string        `json:"regions" yaml:"regions"`
	Comparison *ComparisonView `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	RowCount   int             `json:"row_count" yaml:"row_count"`
}

// State computes the full dashboard view for the dataset and selection.
// An empty selection, or one that names no region in the dataset, yields
// a view without a comparison block.
func State(cfg scoring.Config, records []scoring.RegionRecord, selection string) (*ViewModel, error) {
	scored, err := scoring.Score(cfg, records)
	if err != nil {
		return nil, err
	}

	vm := &ViewModel{
		Rows:     tableRows(scoring.Rank(scored)),
		Charts:   chartSeries(scored),
		Regions:  regionNames(records),
		RowCount: len(records),
	}

	if selection != "" {
		cmp, err := scoring.CompareToAverage(cfg, scored, selection)
		if err != nil && !errors.Is(err, scoring.ErrRegionNotFound) {
			return nil, err
		}
		if cmp != nil {
			vm.Comparison = comparisonView(cmp)
		}
	}
	return vm, nil
}

// Compare builds just the comparison block for one region. Unlike State,
// a selection that names no region is returned as an error so API callers
// can surface it.
func Compare(cfg scoring.Config, records []scoring.RegionRecord, region string) (*ComparisonView, error) {
	scored, err := scoring.Score(cfg, records)
	if err != nil {
		return nil, err
	}
	cmp, err := scoring.CompareToAverage(cfg, scored, region)
	if err != nil {
		return nil, err
	}
	return comparisonView(cmp), nil
}

func tableRows(ranked []scoring.ScoredRegion) []TableRow {
	rows := make([]TableRow, len(ranked))
	for i, s := range ranked {
		rows[i] = TableRow{
			Rank:      s.Rank,
			Region:    s.Region,
			AvgSpeed:  fmt.Sprintf("%.1f", s.AvgSpeed),
			Transit:   formatCount(s.Transit),
			Accidents: fmt.Sprintf("%.1f", s.Accidents),
			Score:     fmt.Sprintf("%.2f", s.Score),
		}
	}
	return rows
}

func chartSeries(scored []scoring.ScoredRegion) []ChartSeries {
	return []ChartSeries{
		series(scored, ChartScore, TitleScore, func(s scoring.ScoredRegion) float64 { return s.Score }, false),
		series(scored, ChartSpeed, TitleSpeed, func(s scoring.ScoredRegion) float64 { return s.AvgSpeed }, false),
		series(scored, ChartTransit, TitleTransit, func(s scoring.ScoredRegion) float64 { return s.Transit }, false),
		series(scored, ChartAccidents, TitleAccidents, func(s scoring.ScoredRegion) float64 { return s.Accidents }, true),
	}
}

// series sorts a copy of the dataset by the extracted value and flattens it
// into chart labels and values. Ties keep input order.
func series(scored []scoring.ScoredRegion, key, title string, value func(scoring.ScoredRegion) float64, asc bool) ChartSeries {
	ordered := make([]scoring.ScoredRegion, len(scored))
	copy(ordered, scored)
	sort.SliceStable(ordered, func(i, j int) bool {
		if asc {
			return value(ordered[i]) < value(ordered[j])
		}
		return value(ordered[i]) > value(ordered[j])
	})

	s := ChartSeries{
		Key:    key,
		Title:  title,
		Labels: make([]string, len(ordered)),
		Values: make([]float64, len(ordered)),
	}
	for i, r := range ordered {
		s.Labels[i] = r.Region
		s.Values[i] = value(r)
	}
	return s
}

func regionNames(records []scoring.RegionRecord) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Region
	}
	return names
}

func comparisonView(c *scoring.Comparison) *ComparisonView {
	view := &ComparisonView{
		Region:   c.Region,
		Headline: fmt.Sprintf("교통 환경 점수: %.2f (평균: %.2f)", c.Score.Value, c.Score.Mean),
	}

	units := []string{unitSpeed, unitTransit, unitAccidents}
	for i, m := range c.Metrics {
		view.Lines = append(view.Lines, ComparisonLine{
			Label: m.Metric,
			Text:  comparisonText(m, units[i]),
		})
	}
	return view
}

func comparisonText(m scoring.MetricComparison, unit string) string {
	return fmt.Sprintf("%.2f %s (평균: %.2f %s) → 평균보다 %.2f %s %s",
		m.Value, unit, m.Mean, unit, math.Abs(m.Diff), unit, relationLabels[m.Relation])
}

// formatCount renders route counts without a forced decimal.
func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package scoring

import (
	"fmt"
	"math"
)

// Relation describes how a region's value sits against the dataset mean.
type Relation string

const (
	RelationHigher Relation = "higher"
	RelationLower  Relation = "lower"
	RelationEqual  Relation = "equal"
)

// Valid returns true when the relation is one of the known values.
func (r Relation) Valid() bool {
	switch r {
	case RelationHigher, RelationLower, RelationEqual:
		return true
	}
	return false
}

// MetricComparison sets one metric of a region against the dataset mean.
type MetricComparison struct {
	Metric   string   `json:"metric" yaml:"metric"`
	Value    float64  `json:"value" yaml:"value"`
	Mean     float64  `json:"mean" yaml:"mean"`
	Diff     float64  `json:"diff" yaml:"diff"`
	Relation Relation `json:"relation" yaml:"relation"`
}

// Comparison sets one region against the dataset averages, composite score
// included. Means are taken over every row, the compared region's own
// values included.
type Comparison struct {
	Region  string             `json:"region" yaml:"region"`
	Score   MetricComparison   `json:"score" yaml:"score"`
	Metrics []MetricComparison `json:"metrics" yaml:"metrics"`
}

// MetricSummary is the spread of one metric across the dataset.
type MetricSummary struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
}

// DatasetStats summarizes every raw metric and the composite score.
type DatasetStats struct {
	Rows      int           `json:"rows" yaml:"rows"`
	AvgSpeed  MetricSummary `json:"avg_speed" yaml:"avg_speed"`
	Transit   MetricSummary `json:"transit_routes" yaml:"transit_routes"`
	Accidents MetricSummary `json:"accidents_per_100k" yaml:"accidents_per_100k"`
	Score     MetricSummary `json:"score" yaml:"score"`
}

// CompareToAverage finds the named region (first match wins on duplicate
// names) and builds its comparison against the dataset means. Diff is value
// minus mean, and the relation comes from the exact sign of the diff with
// no tolerance applied.
func CompareToAverage(cfg Config, scored []ScoredRegion, region string) (*Comparison, error) {
	if len(scored) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidDataset)
	}

	var target *ScoredRegion
	for i := range scored {
		if scored[i].Region == region {
			target = &scored[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, region)
	}

	n := float64(len(scored))
	var speedSum, transitSum, accidentSum, scoreSum float64
	for _, s := range scored {
		speedSum += s.AvgSpeed
		transitSum += s.Transit
		accidentSum += s.Accidents
		scoreSum += s.Score
	}

	return &Comparison{
		Region: target.Region,
		Score:  compareMetric(ColumnScore, target.Score, scoreSum/n),
		Metrics: []MetricComparison{
			compareMetric(cfg.Columns.Speed, target.AvgSpeed, speedSum/n),
			compareMetric(cfg.Columns.Transit, target.Transit, transitSum/n),
			compareMetric(cfg.Columns.Accidents, target.Accidents, accidentSum/n),
		},
	}, nil
}

// Summarize computes per-metric means and ranges over the scored dataset.
func Summarize(scored []ScoredRegion) DatasetStats {
	stats := DatasetStats{Rows: len(scored)}
	if len(scored) == 0 {
		return stats
	}

	speeds := make([]float64, len(scored))
	transits := make([]float64, len(scored))
	accidents := make([]float64, len(scored))
	scores := make([]float64, len(scored))
	for i, s := range scored {
		speeds[i] = s.AvgSpeed
		transits[i] = s.Transit
		accidents[i] = s.Accidents
		scores[i] = s.Score
	}

	stats.AvgSpeed = summarize(speeds)
	stats.Transit = summarize(transits)
	stats.Accidents = summarize(accidents)
	stats.Score = summarize(scores)
	return stats
}

func compareMetric(label string, value, mean float64) MetricComparison {
	diff := value - mean
	return MetricComparison{
		Metric:   label,
		Value:    value,
		Mean:     mean,
		Diff:     diff,
		Relation: relationOf(diff),
	}
}

func relationOf(diff float64) Relation {
	switch {
	case diff > 0:
		return RelationHigher
	case diff < 0:
		return RelationLower
	default:
		return RelationEqual
	}
}

func summarize(values []float64) MetricSummary {
	lo, hi, sum := values[0], values[0], 0.0
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	return MetricSummary{
		Mean: sum / float64(len(values)),
		Min:  lo,
		Max:  hi,
	}
}

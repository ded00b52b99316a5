package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	// Metric weights for the composite score (sum to 1.0).
	speedWeight   = 0.4
	transitWeight = 0.3
	safetyWeight  = 0.3

	// maxScore is the upper bound of each normalized metric and of the
	// composite score.
	maxScore = 100.0
)

// Source dataset column labels.
const (
	ColumnRegion    = "지역"
	ColumnSpeed     = "평균_통행_속도"
	ColumnTransit   = "대중교통_노선_수"
	ColumnAccidents = "교통사고_건수_10만명당"

	// ColumnScore labels the derived composite column.
	ColumnScore = "교통환경점수"
)

var (
	// ErrInvalidDataset indicates the dataset is empty or holds values
	// that cannot be scored.
	ErrInvalidDataset = errors.New("invalid dataset")

	// ErrRegionNotFound indicates the requested region is not in the dataset.
	ErrRegionNotFound = errors.New("region not found")
)

// Direction tells the normalizer which end of a metric's range is best.
type Direction int8

const (
	// HigherIsBetter maps the column maximum to 100.
	HigherIsBetter Direction = iota
	// LowerIsBetter maps the column minimum to 100.
	LowerIsBetter
)

// Weights holds the relative importance of each metric in the composite
// score. A usable set of weights sums to 1.
type Weights struct {
	Speed   float64 `json:"speed" yaml:"speed"`
	Transit float64 `json:"transit" yaml:"transit"`
	Safety  float64 `json:"safety" yaml:"safety"`
}

// Columns holds the dataset header labels for each required column.
type Columns struct {
	Region    string `json:"region" yaml:"region"`
	Speed     string `json:"speed" yaml:"speed"`
	Transit   string `json:"transit" yaml:"transit"`
	Accidents string `json:"accidents" yaml:"accidents"`
}

// Config couples the metric weights with the column labels they apply to.
type Config struct {
	Weights Weights `json:"weights" yaml:"weights"`
	Columns Columns `json:"columns" yaml:"columns"`
}

// DefaultConfig returns the standard scoring model: speed 0.4, transit 0.3,
// safety 0.3 over the source dataset columns.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Speed:   speedWeight,
			Transit: transitWeight,
			Safety:  safetyWeight,
		},
		Columns: Columns{
			Region:    ColumnRegion,
			Speed:     ColumnSpeed,
			Transit:   ColumnTransit,
			Accidents: ColumnAccidents,
		},
	}
}

// RegionRecord is one row of the source dataset: raw metrics for a region.
type RegionRecord struct {
	Region    string  `json:"region" yaml:"region"`
	AvgSpeed  float64 `json:"avg_speed" yaml:"avg_speed"`
	Transit   float64 `json:"transit_routes" yaml:"transit_routes"`
	Accidents float64 `json:"accidents_per_100k" yaml:"accidents_per_100k"`
}

// ScoredRegion is a region with its normalized metrics and composite score.
type ScoredRegion struct {
	RegionRecord
	SpeedScore   float64 `json:"speed_score" yaml:"speed_score"`
	TransitScore float64 `json:"transit_score" yaml:"transit_score"`
	SafetyScore  float64 `json:"safety_score" yaml:"safety_score"`
	Score        float64 `json:"score" yaml:"score"`
	Rank         int     `json:"rank,omitempty" yaml:"rank,omitempty"`
}

// Normalize maps values onto the 0-100 range using min-max scaling. For
// HigherIsBetter the column maximum becomes 100, for LowerIsBetter the
// minimum does. A column with no variation normalizes to 100 for every row.
func Normalize(values []float64, dir Direction) []float64 {
	scores := make([]float64, len(values))
	if len(values) == 0 {
		return scores
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	span := hi - lo
	for i, v := range values {
		switch {
		case span == 0:
			scores[i] = maxScore
		case dir == LowerIsBetter:
			scores[i] = (hi - v) / span * maxScore
		default:
			scores[i] = (v - lo) / span * maxScore
		}
	}
	return scores
}

// Score validates the dataset and computes normalized metrics and the
// weighted composite for every region, preserving input order.
func Score(cfg Config, records []RegionRecord) ([]ScoredRegion, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidDataset)
	}

	speeds := make([]float64, len(records))
	transits := make([]float64, len(records))
	accidents := make([]float64, len(records))
	for i, r := range records {
		if err := validateRecord(cfg, r); err != nil {
			return nil, err
		}
		speeds[i] = r.AvgSpeed
		transits[i] = r.Transit
		accidents[i] = r.Accidents
	}

	speedScores := Normalize(speeds, HigherIsBetter)
	transitScores := Normalize(transits, HigherIsBetter)
	safetyScores := Normalize(accidents, LowerIsBetter)

	scored := make([]ScoredRegion, len(records))
	for i, r := range records {
		scored[i] = ScoredRegion{
			RegionRecord: r,
			SpeedScore:   speedScores[i],
			TransitScore: transitScores[i],
			SafetyScore:  safetyScores[i],
			Score: cfg.Weights.Speed*speedScores[i] +
				cfg.Weights.Transit*transitScores[i] +
				cfg.Weights.Safety*safetyScores[i],
		}
	}
	return scored, nil
}

// Rank orders regions by composite score descending and assigns 1-based
// ranks. Regions with equal scores keep their input order and still get
// distinct consecutive ranks.
func Rank(scored []ScoredRegion) []ScoredRegion {
	ranked := make([]ScoredRegion, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func validateRecord(cfg Config, r RegionRecord) error {
	metrics := []struct {
		label string
		value float64
	}{
		{cfg.Columns.Speed, r.AvgSpeed},
		{cfg.Columns.Transit, r.Transit},
		{cfg.Columns.Accidents, r.Accidents},
	}
	for _, m := range metrics {
		if math.IsNaN(m.value) || math.IsInf(m.value, 0) {
			return fmt.Errorf("%w: region %q has non-numeric %s", ErrInvalidDataset, r.Region, m.label)
		}
	}
	return nil
}

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareToAverage_TwoRegions(t *testing.T) {
	scored, err := Score(DefaultConfig(), testRecords())
	require.NoError(t, err)

	c, err := CompareToAverage(DefaultConfig(), scored, "강남구")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "강남구", c.Region)

	// Speed 30 against a mean of 45.
	require.Len(t, c.Metrics, 3)
	speed := c.Metrics[0]
	assert.Equal(t, ColumnSpeed, speed.Metric)
	assert.InDelta(t, 30, speed.Value, 1e-9)
	assert.InDelta(t, 45, speed.Mean, 1e-9)
	assert.InDelta(t, -15, speed.Diff, 1e-9)
	assert.Equal(t, RelationLower, speed.Relation)

	// Accidents 2 against a mean of 3. Lower value still reads "lower".
	accidents := c.Metrics[2]
	assert.Equal(t, ColumnAccidents, accidents.Metric)
	assert.InDelta(t, -1, accidents.Diff, 1e-9)
	assert.Equal(t, RelationLower, accidents.Relation)

	assert.Equal(t, ColumnScore, c.Score.Metric)
	assert.InDelta(t, 30, c.Score.Value, 1e-9)
	assert.InDelta(t, 50, c.Score.Mean, 1e-9)
	assert.Equal(t, RelationLower, c.Score.Relation)

	// The other region sits the same distance above the mean.
	c, err = CompareToAverage(DefaultConfig(), scored, "서초구")
	require.NoError(t, err)
	speed = c.Metrics[0]
	assert.InDelta(t, 60, speed.Value, 1e-9)
	assert.InDelta(t, 15, speed.Diff, 1e-9)
	assert.Equal(t, RelationHigher, speed.Relation)
	assert.Equal(t, RelationHigher, c.Score.Relation)
}

func TestCompareToAverage_DiffsSumToZero(t *testing.T) {
	records := []RegionRecord{
		{Region: "a", AvgSpeed: 22.1, Transit: 5, Accidents: 9.7},
		{Region: "b", AvgSpeed: 48.3, Transit: 31, Accidents: 2.4},
		{Region: "c", AvgSpeed: 35.0, Transit: 18, Accidents: 5.5},
	}
	scored, err := Score(DefaultConfig(), records)
	require.NoError(t, err)

	var speedSum, transitSum, accidentSum float64
	for _, r := range records {
		c, err := CompareToAverage(DefaultConfig(), scored, r.Region)
		require.NoError(t, err)
		speedSum += c.Metrics[0].Diff
		transitSum += c.Metrics[1].Diff
		accidentSum += c.Metrics[2].Diff
	}
	assert.InDelta(t, 0, speedSum, 1e-9)
	assert.InDelta(t, 0, transitSum, 1e-9)
	assert.InDelta(t, 0, accidentSum, 1e-9)
}

func TestCompareToAverage_EqualRelation(t *testing.T) {
	// Identical rows make every value equal to its mean.
	records := []RegionRecord{
		{Region: "x", AvgSpeed: 40, Transit: 10, Accidents: 3},
		{Region: "y", AvgSpeed: 40, Transit: 10, Accidents: 3},
	}
	scored, err := Score(DefaultConfig(), records)
	require.NoError(t, err)

	c, err := CompareToAverage(DefaultConfig(), scored, "y")
	require.NoError(t, err)
	for _, m := range c.Metrics {
		assert.Equal(t, RelationEqual, m.Relation)
		assert.Zero(t, m.Diff)
	}
	assert.Equal(t, RelationEqual, c.Score.Relation)
}

func TestCompareToAverage_FirstMatchOnDuplicates(t *testing.T) {
	records := []RegionRecord{
		{Region: "강남구", AvgSpeed: 30, Transit: 10, Accidents: 2},
		{Region: "중복", AvgSpeed: 10, Transit: 1, Accidents: 9},
		{Region: "중복", AvgSpeed: 90, Transit: 40, Accidents: 1},
	}
	scored, err := Score(DefaultConfig(), records)
	require.NoError(t, err)

	c, err := CompareToAverage(DefaultConfig(), scored, "중복")
	require.NoError(t, err)
	assert.InDelta(t, 10, c.Metrics[0].Value, 1e-9)
}

func TestCompareToAverage_RegionNotFound(t *testing.T) {
	scored, err := Score(DefaultConfig(), testRecords())
	require.NoError(t, err)

	_, err = CompareToAverage(DefaultConfig(), scored, "없는동네")
	require.ErrorIs(t, err, ErrRegionNotFound)
	assert.Contains(t, err.Error(), "없는동네")
}

func TestCompareToAverage_EmptyDataset(t *testing.T) {
	_, err := CompareToAverage(DefaultConfig(), nil, "강남구")
	assert.ErrorIs(t, err, ErrInvalidDataset)
}

func TestRelation_Valid(t *testing.T) {
	assert.True(t, RelationHigher.Valid())
	assert.True(t, RelationLower.Valid())
	assert.True(t, RelationEqual.Valid())
	assert.False(t, Relation("sideways").Valid())
}

func TestSummarize(t *testing.T) {
	scored, err := Score(DefaultConfig(), testRecords())
	require.NoError(t, err)

	stats := Summarize(scored)
	assert.Equal(t, 2, stats.Rows)
	assert.InDelta(t, 45, stats.AvgSpeed.Mean, 1e-9)
	assert.InDelta(t, 30, stats.AvgSpeed.Min, 1e-9)
	assert.InDelta(t, 60, stats.AvgSpeed.Max, 1e-9)
	assert.InDelta(t, 15, stats.Transit.Mean, 1e-9)
	assert.InDelta(t, 3, stats.Accidents.Mean, 1e-9)
	assert.InDelta(t, 50, stats.Score.Mean, 1e-9)
	assert.InDelta(t, 30, stats.Score.Min, 1e-9)
	assert.InDelta(t, 70, stats.Score.Max, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize(nil)
	assert.Zero(t, stats.Rows)
	assert.Zero(t, stats.Score.Mean)
}

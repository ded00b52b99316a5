package data

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinhakim/roadpulse/pkg/scoring"
)

func testRecords() []scoring.RegionRecord {
	return []scoring.RegionRecord{
		{Region: "강남구", AvgSpeed: 28.4, Transit: 87, Accidents: 4.2},
		{Region: "종로구", AvgSpeed: 22.1, Transit: 64, Accidents: 5.8},
		{Region: "노원구", AvgSpeed: 31.7, Transit: 42, Accidents: 3.9},
	}
}

func TestSaveDataset(t *testing.T) {
	db := setupTestDB(t)

	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })

	d, err := SaveDataset(db, "seoul-2026", "seoul.csv", testRecords())
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Greater(t, d.ID, int64(0))
	assert.Equal(t, "seoul-2026", d.Name)
	assert.Equal(t, "seoul.csv", d.Source)
	assert.Equal(t, "2026-03-14T09:30:00Z", d.ImportedAt)
	assert.True(t, d.Current)
	assert.Equal(t, 3, d.Regions)
}

func TestSaveDataset_Validation(t *testing.T) {
	db := setupTestDB(t)

	_, err := SaveDataset(nil, "x", "", testRecords())
	assert.Error(t, err)

	_, err = SaveDataset(db, "", "", testRecords())
	assert.Error(t, err)

	_, err = SaveDataset(db, "x", "", nil)
	assert.Error(t, err)
}

func TestGetDatasetRecords_RoundTrip(t *testing.T) {
	db := setupTestDB(t)

	d, err := SaveDataset(db, "seoul", "", testRecords())
	require.NoError(t, err)

	records, err := GetDatasetRecords(db, d.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Input order survives the round trip.
	assert.Equal(t, "강남구", records[0].Region)
	assert.Equal(t, "종로구", records[1].Region)
	assert.Equal(t, "노원구", records[2].Region)
	assert.InDelta(t, 28.4, records[0].AvgSpeed, 1e-9)
	assert.InDelta(t, 87, records[0].Transit, 1e-9)
	assert.InDelta(t, 4.2, records[0].Accidents, 1e-9)
}

func TestGetDatasetRecords_Missing(t *testing.T) {
	db := setupTestDB(t)

	_, err := GetDatasetRecords(db, 42)
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestGetCurrentDataset_Empty(t *testing.T) {
	db := setupTestDB(t)

	_, err := GetCurrentDataset(db)
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestGetCurrentDataset_LatestImportWins(t *testing.T) {
	db := setupTestDB(t)

	first, err := SaveDataset(db, "first", "", testRecords())
	require.NoError(t, err)
	second, err := SaveDataset(db, "second", "", testRecords()[:2])
	require.NoError(t, err)

	d, err := GetCurrentDataset(db)
	require.NoError(t, err)
	assert.Equal(t, second.ID, d.ID)
	assert.Equal(t, 2, d.Regions)

	// Earlier snapshot is untouched.
	old, err := GetDataset(db, first.ID)
	require.NoError(t, err)
	assert.False(t, old.Current)
	assert.Equal(t, 3, old.Regions)
}

func TestGetCurrentRecords(t *testing.T) {
	db := setupTestDB(t)

	_, _, err := GetCurrentRecords(db)
	assert.ErrorIs(t, err, ErrNoDataset)

	saved, err := SaveDataset(db, "seoul", "", testRecords())
	require.NoError(t, err)

	d, records, err := GetCurrentRecords(db)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, d.ID)
	assert.Len(t, records, 3)
}

func TestListDatasets(t *testing.T) {
	db := setupTestDB(t)

	list, err := ListDatasets(db, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = SaveDataset(db, "first", "", testRecords())
	require.NoError(t, err)
	_, err = SaveDataset(db, "second", "", testRecords())
	require.NoError(t, err)

	list, err = ListDatasets(db, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Newest first.
	assert.Equal(t, "second", list[0].Name)
	assert.True(t, list[0].Current)
	assert.Equal(t, "first", list[1].Name)
	assert.False(t, list[1].Current)
	assert.Equal(t, 3, list[0].Regions)
}

func TestSetCurrentDataset(t *testing.T) {
	db := setupTestDB(t)

	first, err := SaveDataset(db, "first", "", testRecords())
	require.NoError(t, err)
	_, err = SaveDataset(db, "second", "", testRecords())
	require.NoError(t, err)

	require.NoError(t, SetCurrentDataset(db, first.ID))

	d, err := GetCurrentDataset(db)
	require.NoError(t, err)
	assert.Equal(t, first.ID, d.ID)
}

func TestSetCurrentDataset_Missing(t *testing.T) {
	db := setupTestDB(t)

	err := SetCurrentDataset(db, 42)
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestDeleteDataset(t *testing.T) {
	db := setupTestDB(t)

	first, err := SaveDataset(db, "first", "", testRecords())
	require.NoError(t, err)
	second, err := SaveDataset(db, "second", "", testRecords())
	require.NoError(t, err)

	require.NoError(t, DeleteDataset(db, first.ID))

	_, err = GetDataset(db, first.ID)
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = GetDatasetRecords(db, first.ID)
	assert.ErrorIs(t, err, ErrNoDataset)

	// The other snapshot survives intact.
	d, err := GetDataset(db, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Regions)

	state, err := GetDataState(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state["datasets"])
	assert.Equal(t, int64(3), state["regions"])
}

func TestDeleteDataset_Current(t *testing.T) {
	db := setupTestDB(t)

	d, err := SaveDataset(db, "only", "", testRecords())
	require.NoError(t, err)

	require.NoError(t, DeleteDataset(db, d.ID))

	// No snapshot is current after deleting the current one.
	_, err = GetCurrentDataset(db)
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestDeleteDataset_Missing(t *testing.T) {
	db := setupTestDB(t)

	err := DeleteDataset(db, 42)
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestGetDataState_AfterImport(t *testing.T) {
	db := setupTestDB(t)

	d, err := SaveDataset(db, "seoul", "", testRecords())
	require.NoError(t, err)

	state, err := GetDataState(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state["datasets"])
	assert.Equal(t, int64(3), state["regions"])
	assert.Equal(t, d.ID, state["current"])
}

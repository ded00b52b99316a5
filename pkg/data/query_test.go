package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRegionOptions(t *testing.T) {
	db := setupTestDB(t)

	d, err := SaveDataset(db, "seoul", "", testRecords())
	require.NoError(t, err)

	list, err := GetRegionOptions(db, d.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)

	// Options keep the snapshot's input order.
	assert.Equal(t, "강남구", list[0].Value)
	assert.Equal(t, "강남구", list[0].Text)
	assert.Equal(t, "종로구", list[1].Value)
	assert.Equal(t, "노원구", list[2].Value)
}

func TestGetRegionOptions_EmptyDataset(t *testing.T) {
	db := setupTestDB(t)

	list, err := GetRegionOptions(db, 42)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetRegionOptions_NilDB(t *testing.T) {
	_, err := GetRegionOptions(nil, 1)
	assert.Error(t, err)
}

func TestGetRegionLike(t *testing.T) {
	db := setupTestDB(t)

	d, err := SaveDataset(db, "seoul", "", testRecords())
	require.NoError(t, err)

	list, err := GetRegionLike(db, d.ID, "노원", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "노원구", list[0].Value)

	list, err = GetRegionLike(db, d.ID, "구", 10)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestGetRegionLike_Limit(t *testing.T) {
	db := setupTestDB(t)

	d, err := SaveDataset(db, "seoul", "", testRecords())
	require.NoError(t, err)

	list, err := GetRegionLike(db, d.ID, "구", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestGetRegionLike_EmptyQuery(t *testing.T) {
	db := setupTestDB(t)

	_, err := GetRegionLike(db, 1, "", 10)
	assert.Error(t, err)
}

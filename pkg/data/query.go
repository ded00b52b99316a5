package data

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

const (
	selectRegionNamesSQL = `SELECT name FROM region
		WHERE dataset_id = ?
		ORDER BY position`

	selectRegionLikeSQL = `SELECT name FROM region
		WHERE dataset_id = ?
		AND name LIKE ?
		ORDER BY position
		LIMIT ?`
)

// ListItem is one option of a select list.
type ListItem struct {
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
}

// GetRegionOptions returns the snapshot's region names as select options,
// in input order.
func GetRegionOptions(db *sql.DB, datasetID int64) ([]*ListItem, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectRegionNamesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare region names statement")
	}

	rows, err := stmt.Query(datasetID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query region names for dataset: %d", datasetID)
	}
	defer rows.Close()

	return mapListItems(rows)
}

// GetRegionLike returns select options for region names matching the given
// pattern within the snapshot.
func GetRegionLike(db *sql.DB, datasetID int64, query string, limit int) ([]*ListItem, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if query == "" {
		return nil, errors.New("query is required")
	}
	if limit <= 0 {
		limit = 100
	}

	stmt, err := db.Prepare(selectRegionLikeSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare region like statement")
	}

	rows, err := stmt.Query(datasetID, fmt.Sprintf("%%%s%%", query), limit)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to execute region like statement")
	}
	defer rows.Close()

	return mapListItems(rows)
}

func mapListItems(rows *sql.Rows) ([]*ListItem, error) {
	list := make([]*ListItem, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan region name")
		}
		list = append(list, &ListItem{Value: name, Text: name})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read region name rows")
	}
	return list, nil
}

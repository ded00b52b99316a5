package data

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/jinhakim/roadpulse/pkg/scoring"
)

const (
	insertDatasetSQL = `INSERT INTO dataset (name, source, imported_at, is_current) VALUES (?, ?, ?, 1)`

	insertRegionSQL = `INSERT INTO region (dataset_id, position, name, avg_speed, transit_routes, accidents)
		VALUES (?, ?, ?, ?, ?, ?)`

	clearCurrentSQL = `UPDATE dataset SET is_current = 0 WHERE is_current = 1`
	setCurrentSQL   = `UPDATE dataset SET is_current = 1 WHERE id = ?`
	countDatasetSQL = `SELECT COUNT(*) FROM dataset WHERE id = ?`

	deleteRegionsSQL = `DELETE FROM region WHERE dataset_id = ?`
	deleteDatasetSQL = `DELETE FROM dataset WHERE id = ?`

	selectDatasetSQL = `SELECT d.id, d.name, d.source, d.imported_at, d.is_current, COUNT(r.dataset_id)
		FROM dataset d
		LEFT JOIN region r ON r.dataset_id = d.id
		WHERE d.id = ?
		GROUP BY d.id`

	selectCurrentDatasetSQL = `SELECT d.id, d.name, d.source, d.imported_at, d.is_current, COUNT(r.dataset_id)
		FROM dataset d
		LEFT JOIN region r ON r.dataset_id = d.id
		WHERE d.is_current = 1
		GROUP BY d.id
		ORDER BY d.id DESC
		LIMIT 1`

	listDatasetsSQL = `SELECT d.id, d.name, d.source, d.imported_at, d.is_current, COUNT(r.dataset_id)
		FROM dataset d
		LEFT JOIN region r ON r.dataset_id = d.id
		GROUP BY d.id
		ORDER BY d.id DESC
		LIMIT ?`

	selectRegionsSQL = `SELECT name, avg_speed, transit_routes, accidents
		FROM region
		WHERE dataset_id = ?
		ORDER BY position`
)

// ErrNoDataset indicates the store holds no matching dataset snapshot.
var ErrNoDataset = errors.New("no dataset loaded")

// Dataset is metadata for one stored snapshot of an imported CSV.
type Dataset struct {
	ID         int64  `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Source     string `json:"source,omitempty" yaml:"source,omitempty"`
	ImportedAt string `json:"imported_at" yaml:"imported_at"`
	Current    bool   `json:"current" yaml:"current"`
	Regions    int    `json:"regions" yaml:"regions"`
}

// SaveDataset stores the records as a new snapshot and makes it current.
// Snapshots are append-only: imports never modify earlier ones.
func SaveDataset(db *sql.DB, name, source string, records []scoring.RegionRecord) (*Dataset, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if name == "" {
		return nil, errors.New("dataset name not specified")
	}
	if len(records) == 0 {
		return nil, errors.New("no records to save")
	}

	regionStmt, err := db.Prepare(insertRegionSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare region insert statement")
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}

	if _, err = tx.Exec(clearCurrentSQL); err != nil {
		rollbackTransaction(tx)
		return nil, errors.Wrap(err, "failed to clear current dataset")
	}

	importedAt := clock.Now().UTC().Format(time.RFC3339)
	res, err := tx.Exec(insertDatasetSQL, name, source, importedAt)
	if err != nil {
		rollbackTransaction(tx)
		return nil, errors.Wrapf(err, "failed to insert dataset: %s", name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		rollbackTransaction(tx)
		return nil, errors.Wrap(err, "failed to get dataset id")
	}

	for i, r := range records {
		if _, err = tx.Stmt(regionStmt).Exec(id, i, r.Region, r.AvgSpeed, r.Transit, r.Accidents); err != nil {
			rollbackTransaction(tx)
			return nil, errors.Wrapf(err, "error inserting region[%d]: %s", i, r.Region)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}

	return &Dataset{
		ID:         id,
		Name:       name,
		Source:     source,
		ImportedAt: importedAt,
		Current:    true,
		Regions:    len(records),
	}, nil
}

// GetDataset returns snapshot metadata by id.
func GetDataset(db *sql.DB, id int64) (*Dataset, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectDatasetSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare dataset select statement")
	}

	d, err := scanDataset(stmt.QueryRow(id))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get dataset: %d", id)
	}
	return d, nil
}

// GetCurrentDataset returns metadata for the snapshot imports made current.
func GetCurrentDataset(db *sql.DB) (*Dataset, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectCurrentDatasetSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare current dataset select statement")
	}

	d, err := scanDataset(stmt.QueryRow())
	if err != nil {
		return nil, errors.Wrap(err, "failed to get current dataset")
	}
	return d, nil
}

// GetDatasetRecords returns the snapshot's raw records in input order.
func GetDatasetRecords(db *sql.DB, id int64) ([]scoring.RegionRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectRegionsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare region select statement")
	}

	rows, err := stmt.Query(id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query regions for dataset: %d", id)
	}
	defer rows.Close()

	var records []scoring.RegionRecord
	for rows.Next() {
		var r scoring.RegionRecord
		if err := rows.Scan(&r.Region, &r.AvgSpeed, &r.Transit, &r.Accidents); err != nil {
			return nil, errors.Wrap(err, "failed to scan region row")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read region rows")
	}

	if len(records) == 0 {
		return nil, errors.Wrapf(ErrNoDataset, "dataset: %d", id)
	}
	return records, nil
}

// GetCurrentRecords returns the current snapshot's metadata and records.
func GetCurrentRecords(db *sql.DB) (*Dataset, []scoring.RegionRecord, error) {
	d, err := GetCurrentDataset(db)
	if err != nil {
		return nil, nil, err
	}

	records, err := GetDatasetRecords(db, d.ID)
	if err != nil {
		return nil, nil, err
	}
	return d, records, nil
}

// ListDatasets returns snapshot metadata, newest first.
func ListDatasets(db *sql.DB, limit int) ([]*Dataset, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = 100
	}

	stmt, err := db.Prepare(listDatasetsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare dataset list statement")
	}

	rows, err := stmt.Query(limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query datasets")
	}
	defer rows.Close()

	list := make([]*Dataset, 0)
	for rows.Next() {
		var d Dataset
		var current int
		if err := rows.Scan(&d.ID, &d.Name, &d.Source, &d.ImportedAt, &current, &d.Regions); err != nil {
			return nil, errors.Wrap(err, "failed to scan dataset row")
		}
		d.Current = current == 1
		list = append(list, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read dataset rows")
	}

	return list, nil
}

// DeleteDataset removes the snapshot and its region rows. Deleting the
// current snapshot leaves the store with no current dataset until the next
// import or SetCurrentDataset.
func DeleteDataset(db *sql.DB, id int64) error {
	if db == nil {
		return errDBNotInitialized
	}

	var count int
	if err := db.QueryRow(countDatasetSQL, id).Scan(&count); err != nil {
		return errors.Wrapf(err, "failed to check dataset: %d", id)
	}
	if count == 0 {
		return errors.Wrapf(ErrNoDataset, "dataset: %d", id)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if _, err = tx.Exec(deleteRegionsSQL, id); err != nil {
		rollbackTransaction(tx)
		return errors.Wrapf(err, "failed to delete regions for dataset: %d", id)
	}
	if _, err = tx.Exec(deleteDatasetSQL, id); err != nil {
		rollbackTransaction(tx)
		return errors.Wrapf(err, "failed to delete dataset: %d", id)
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// SetCurrentDataset makes the snapshot with the given id current.
func SetCurrentDataset(db *sql.DB, id int64) error {
	if db == nil {
		return errDBNotInitialized
	}

	var count int
	if err := db.QueryRow(countDatasetSQL, id).Scan(&count); err != nil {
		return errors.Wrapf(err, "failed to check dataset: %d", id)
	}
	if count == 0 {
		return errors.Wrapf(ErrNoDataset, "dataset: %d", id)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if _, err = tx.Exec(clearCurrentSQL); err != nil {
		rollbackTransaction(tx)
		return errors.Wrap(err, "failed to clear current dataset")
	}
	if _, err = tx.Exec(setCurrentSQL, id); err != nil {
		rollbackTransaction(tx)
		return errors.Wrapf(err, "failed to set current dataset: %d", id)
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

func scanDataset(row *sql.Row) (*Dataset, error) {
	var d Dataset
	var current int
	err := row.Scan(&d.ID, &d.Name, &d.Source, &d.ImportedAt, &current, &d.Regions)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoDataset
		}
		return nil, errors.Wrap(err, "failed to scan dataset row")
	}
	d.Current = current == 1
	return &d, nil
}

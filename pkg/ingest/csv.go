// Package ingest parses regional traffic CSV data into scoring records.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jinhakim/roadpulse/pkg/scoring"
)

// utf8BOM prefixes CSV exports from common spreadsheet tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options controls CSV parsing.
type Options struct {
	// Columns maps the required fields to their header labels. The zero
	// value falls back to the default scoring columns.
	Columns scoring.Columns

	// DropInvalid skips rows with missing or non-numeric fields instead
	// of failing the whole parse.
	DropInvalid bool
}

type fieldIndex struct {
	region, speed, transit, accidents int
}

// Parse reads CSV rows into region records, preserving input order. The
// first row must be a header naming every required column; extra columns
// are ignored. Returns the records and the number of rows dropped when
// Options.DropInvalid is set.
func Parse(r io.Reader, opts Options) ([]scoring.RegionRecord, int, error) {
	cols := opts.Columns
	if cols == (scoring.Columns{}) {
		cols = scoring.DefaultConfig().Columns
	}

	cr := csv.NewReader(skipBOM(r))
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("%w: no header row", scoring.ErrInvalidDataset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading CSV header: %w", err)
	}

	idx, err := columnIndex(header, cols)
	if err != nil {
		return nil, 0, err
	}

	var (
		records []scoring.RegionRecord
		dropped int
	)
	for row := 2; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, csv.ErrFieldCount) {
			if opts.DropInvalid {
				dropped++
				continue
			}
			return nil, 0, fmt.Errorf("%w: row %d has %d fields, header has %d",
				scoring.ErrInvalidDataset, row, len(fields), len(header))
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading CSV row %d: %w", row, err)
		}

		rec, err := parseRow(fields, idx, cols, row)
		if err != nil {
			if opts.DropInvalid {
				dropped++
				continue
			}
			return nil, 0, err
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, dropped, fmt.Errorf("%w: no data rows", scoring.ErrInvalidDataset)
	}
	return records, dropped, nil
}

// ParseFile parses the CSV file at path. See Parse.
func ParseFile(path string, opts Options) ([]scoring.RegionRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f, opts)
}

func columnIndex(header []string, cols scoring.Columns) (fieldIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}

	var idx fieldIndex
	required := []struct {
		label string
		dst   *int
	}{
		{cols.Region, &idx.region},
		{cols.Speed, &idx.speed},
		{cols.Transit, &idx.transit},
		{cols.Accidents, &idx.accidents},
	}
	for _, c := range required {
		i, ok := pos[c.label]
		if !ok {
			return idx, fmt.Errorf("missing required column %q", c.label)
		}
		*c.dst = i
	}
	return idx, nil
}

func parseRow(fields []string, idx fieldIndex, cols scoring.Columns, row int) (scoring.RegionRecord, error) {
	var rec scoring.RegionRecord

	region := strings.TrimSpace(fields[idx.region])
	if region == "" {
		return rec, fmt.Errorf("%w: row %d has no %s", scoring.ErrInvalidDataset, row, cols.Region)
	}

	speed, err := parseMetric(fields[idx.speed], cols.Speed, row)
	if err != nil {
		return rec, err
	}
	transit, err := parseMetric(fields[idx.transit], cols.Transit, row)
	if err != nil {
		return rec, err
	}
	accidents, err := parseMetric(fields[idx.accidents], cols.Accidents, row)
	if err != nil {
		return rec, err
	}

	return scoring.RegionRecord{
		Region:    region,
		AvgSpeed:  speed,
		Transit:   transit,
		Accidents: accidents,
	}, nil
}

func parseMetric(raw, label string, row int) (float64, error) {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d has non-numeric %s: %q", scoring.ErrInvalidDataset, row, label, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: row %d has non-finite %s", scoring.ErrInvalidDataset, row, label)
	}
	return v, nil
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

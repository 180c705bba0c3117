package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"healthwealth/internal/config"
	"healthwealth/internal/parser"
	csvparser "healthwealth/internal/parser/csv"
	"healthwealth/internal/transformer"
)

// table is a CSV artifact held in memory with its canonical header.
type table struct {
	header []string
	rows   [][]string
}

// rawCells keeps cell text untouched so rows can be copied verbatim.
var rawCells = config.Options{"trim_space": false}

// readTable reads the whole CSV at path. Cells keep their edge whitespace;
// null cells become "".
func readTable(ctx context.Context, path string) (table, error) {
	rc, err := OpenInput(path)
	if err != nil {
		return table{}, err
	}
	defer rc.Close()

	var t table
	t.header, err = csvparser.StreamRows(ctx, rc, nil, rawCells, func(r *transformer.Row) error {
		rec := make([]string, len(r.V))
		for i := range r.V {
			rec[i], _ = r.String(i)
		}
		t.rows = append(t.rows, rec)
		return nil
	})
	if err != nil {
		return table{}, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// column returns the index of name in the header or a *SchemaError.
func (t table) column(path, name string) (int, error) {
	for i, h := range t.header {
		if h == name {
			return i, nil
		}
	}
	return -1, &SchemaError{
		Path:    path,
		Column:  name,
		Columns: []string{name},
		Err:     &parser.MissingColumnsError{Columns: []string{name}, Header: t.header},
	}
}

// ExtractStats counts rows seen and kept by ExtractYear.
type ExtractStats struct {
	Rows int
	Kept int
}

// ExtractYear copies the rows of the CSV at in whose year column equals year
// to a new CSV at out. Every column is kept, in source order, header
// included. No match is not an error: out then holds only the header and the
// returned warning is non-nil.
//
// The input is read completely before out is replaced.
//
// Errors:
//   - *MissingFileError when in does not exist
//   - *SchemaError when in has no "year" column
func ExtractYear(ctx context.Context, in, out string, year int) (ExtractStats, *EmptyResultWarning, error) {
	var stats ExtractStats

	t, err := readTable(ctx, in)
	if err != nil {
		return stats, nil, err
	}
	yi, err := t.column(in, ColYear)
	if err != nil {
		return stats, nil, err
	}

	kept := make([][]string, 0, len(t.rows))
	for _, rec := range t.rows {
		stats.Rows++
		if y, err := strconv.Atoi(strings.TrimSpace(rec[yi])); err == nil && y == year {
			kept = append(kept, rec)
		}
	}
	stats.Kept = len(kept)

	_, err = WriteFile(out, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(t.header); err != nil {
			return err
		}
		if err := cw.WriteAll(kept); err != nil {
			return err
		}
		return cw.Error()
	})
	if err != nil {
		return stats, nil, err
	}

	if stats.Kept == 0 {
		return stats, &EmptyResultWarning{Stage: fmt.Sprintf("year %d filter", year), Path: out}, nil
	}
	return stats, nil, nil
}

package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"healthwealth/internal/config"
	"healthwealth/internal/parser"
	csvparser "healthwealth/internal/parser/csv"
	htmlparser "healthwealth/internal/parser/html"
	jsonparser "healthwealth/internal/parser/json"
	"healthwealth/internal/transformer"
)

type streamFunc func(ctx context.Context, src io.Reader, columns []string, opt config.Options, fn parser.RowFunc) ([]string, error)

func readerFor(format string) (streamFunc, error) {
	switch format {
	case config.FormatCSV:
		return csvparser.StreamRows, nil
	case config.FormatHTML:
		return htmlparser.StreamTableRows, nil
	case config.FormatJSON:
		return jsonparser.StreamRows, nil
	default:
		return nil, fmt.Errorf("unsupported source format %q", format)
	}
}

// LoadStats counts what Load saw in one source table.
type LoadStats struct {
	Rows int
	// InvalidCells counts non-empty year/value cells that did not parse and
	// were therefore treated as null.
	InvalidCells int
}

// Load reads one source table, projects it to the four schema columns and
// renames them through the schema's explicit mapping (never by position).
//
// src.Options are passed to the parser; a header_map in them extends the
// schema mapping, e.g. to accept a renamed upstream value column.
//
// Errors:
//   - *MissingFileError when src.Path does not exist
//   - *SchemaError when a projected column is absent
//   - wrapped parse errors otherwise
func Load(ctx context.Context, src config.Source, schema Schema) ([]SourceRecord, LoadStats, error) {
	var stats LoadStats

	stream, err := readerFor(src.ResolvedFormat())
	if err != nil {
		return nil, stats, fmt.Errorf("load %s: %w", src.Path, err)
	}

	rc, err := OpenInput(src.Path)
	if err != nil {
		return nil, stats, err
	}
	defer rc.Close()

	rename := schema.Rename()
	for from, to := range src.Options.StringMap("header_map") {
		rename[from] = to
	}
	opt := src.Options.With("header_map", rename)

	var out []SourceRecord
	_, err = stream(ctx, rc, schema.Columns(), opt, func(r *transformer.Row) error {
		rec, invalid := toSourceRecord(r)
		stats.Rows++
		stats.InvalidCells += invalid
		out = append(out, rec)
		return nil
	})
	if err != nil {
		var mc *parser.MissingColumnsError
		if errors.As(err, &mc) {
			missing := make([]string, len(mc.Columns))
			for i, c := range mc.Columns {
				missing[i] = schema.sourceName(c)
			}
			return nil, stats, &SchemaError{Path: src.Path, Column: missing[0], Columns: missing, Err: err}
		}
		return nil, stats, fmt.Errorf("load %s: %w", src.Path, err)
	}
	return out, stats, nil
}

// toSourceRecord converts a row aligned to Schema.Columns.
func toSourceRecord(r *transformer.Row) (SourceRecord, int) {
	rec := SourceRecord{Line: r.Line}
	invalid := 0

	if s, ok := r.String(0); ok {
		rec.Country = normalizeName(s)
	}
	if s, ok := r.String(1); ok {
		rec.Code = s
	}
	if s, ok := r.String(2); ok {
		if y, err := strconv.Atoi(s); err == nil {
			rec.Year = &y
		} else {
			invalid++
		}
	}
	if s, ok := r.String(3); ok {
		if v, ok := parseValue(s); ok {
			rec.Value = &v
		} else if !isNullToken(s) {
			invalid++
		}
	}
	return rec, invalid
}

// parseValue parses a finite float. NaN and infinities are not values.
func parseValue(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// isNullToken reports spellings of "no value" common in statistical exports.
func isNullToken(s string) bool {
	switch s {
	case "NaN", "nan", "NA", "N/A", "null", "NULL", "..", "-":
		return true
	}
	return false
}

package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"healthwealth/internal/config"
	"healthwealth/internal/parser"
	"healthwealth/internal/transformer"
)

// StreamRows reads delimited text with a mandatory header row from src and
// calls fn once per data record with a pooled *transformer.Row aligned to
// columns. It returns the effective column list (the canonical header when
// columns is nil).
//
// Options:
//   - comma (rune, default ','), lazy_quotes (default false)
//   - trim_space (default true): trim cells; empty cells become nil
//   - header_map / normalize_headers: see parser.CanonicalHeader
//
// A requested column absent from the header fails with
// *parser.MissingColumnsError before any row is delivered. A malformed record
// is fatal and reported with its line number.
func StreamRows(
	ctx context.Context,
	src io.Reader,
	columns []string,
	opt config.Options,
	fn parser.RowFunc,
) ([]string, error) {
	trim := opt.Bool("trim_space", true)

	cr := csv.NewReader(src)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	line := 1
	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv: empty input, header row required")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	header := parser.CanonicalHeader(hdr, opt)
	colIx, effective, err := parser.ResolveColumns(header, columns)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return effective, ctx.Err()
		default:
		}

		line++
		rec, err := cr.Read()
		if err == io.EOF {
			return effective, nil
		}
		if err != nil {
			return effective, fmt.Errorf("csv: line %d: %w", line, err)
		}

		row := transformer.GetRow(len(effective))
		row.Line = line
		for t, si := range colIx {
			if si >= len(rec) {
				continue
			}
			row.V[t] = transformer.Cell(rec[si], trim)
		}

		if err := fn(row); err != nil {
			row.Drop()
			return effective, err
		}
		row.Free()
	}
}

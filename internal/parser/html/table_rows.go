// Package html reads a data table out of an HTML page, e.g. the table view a
// statistics portal offers next to its CSV download.
package html

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"healthwealth/internal/config"
	"healthwealth/internal/parser"
	"healthwealth/internal/transformer"
)

// StreamTableRows parses the HTML document in src, selects the first element
// matching the "table_selector" option (default "table") and calls fn once per
// body row, aligned to columns exactly like the CSV reader.
//
// The header is the first row containing <th> cells (thead first), or the
// first row of the table when no <th> exists. Rows made only of <th> cells
// after the header are skipped. Cell text is whitespace-collapsed.
//
// Errors:
//   - no element matches the selector
//   - the table has no header row
//   - *parser.MissingColumnsError when a requested column is absent
func StreamTableRows(
	ctx context.Context,
	src io.Reader,
	columns []string,
	opt config.Options,
	fn parser.RowFunc,
) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(src)
	if err != nil {
		return nil, fmt.Errorf("html: parse: %w", err)
	}

	selector := opt.String("table_selector", "table")
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("html: no element matches table_selector %q", selector)
	}

	trs := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		// Ignore rows of nested tables.
		return tr.Closest("table").IsSelection(table)
	})
	if trs.Length() == 0 {
		return nil, fmt.Errorf("html: table %q has no rows", selector)
	}

	headerIdx := 0
	trs.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if tr.ChildrenFiltered("th").Length() > 0 {
			headerIdx = i
			return false
		}
		return true
	})

	header := parser.CanonicalHeader(cellTexts(trs.Eq(headerIdx)), opt)
	colIx, effective, err := parser.ResolveColumns(header, columns)
	if err != nil {
		return nil, err
	}

	trim := opt.Bool("trim_space", true)

	var cbErr error
	trs.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if i <= headerIdx || tr.ChildrenFiltered("td").Length() == 0 {
			return true
		}
		if err := ctx.Err(); err != nil {
			cbErr = err
			return false
		}

		cells := cellTexts(tr)
		row := transformer.GetRow(len(effective))
		row.Line = i + 1
		for t, si := range colIx {
			if si < len(cells) {
				row.V[t] = transformer.Cell(cells[si], trim)
			}
		}
		if err := fn(row); err != nil {
			row.Drop()
			cbErr = err
			return false
		}
		row.Free()
		return true
	})

	return effective, cbErr
}

func cellTexts(tr *goquery.Selection) []string {
	cells := tr.ChildrenFiltered("th, td")
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.Join(strings.Fields(c.Text()), " "))
	})
	return out
}

package dataset

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Report is the result of a sanity check over a CSV artifact.
type Report struct {
	Path string
	Rows int
	// Years holds the distinct integer values of the year column, ascending.
	Years []int
	// OtherYears holds distinct non-empty year values that are not integers.
	OtherYears []string
	// EmptyYears counts rows with an empty year cell.
	EmptyYears int
}

// String renders the report the way the check has always printed it.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Number of rows: %d\n", r.Rows)

	vals := make([]string, 0, len(r.Years)+len(r.OtherYears))
	for _, y := range r.Years {
		vals = append(vals, strconv.Itoa(y))
	}
	vals = append(vals, r.OtherYears...)
	fmt.Fprintf(&b, "Unique years: %s\n", strings.Join(vals, ", "))

	if r.EmptyYears > 0 {
		fmt.Fprintf(&b, "Rows without year: %d\n", r.EmptyYears)
	}
	return b.String()
}

// Check reads the CSV at path and reports its row count and distinct years.
// It writes nothing.
//
// Errors:
//   - *MissingFileError when path does not exist
//   - *SchemaError when path has no "year" column
func Check(ctx context.Context, path string) (Report, error) {
	rep := Report{Path: path}

	t, err := readTable(ctx, path)
	if err != nil {
		return rep, err
	}
	yi, err := t.column(path, ColYear)
	if err != nil {
		return rep, err
	}

	years := map[int]struct{}{}
	other := map[string]struct{}{}
	for _, rec := range t.rows {
		rep.Rows++
		s := strings.TrimSpace(rec[yi])
		if s == "" {
			rep.EmptyYears++
			continue
		}
		if y, err := strconv.Atoi(s); err == nil {
			years[y] = struct{}{}
		} else {
			other[s] = struct{}{}
		}
	}

	for y := range years {
		rep.Years = append(rep.Years, y)
	}
	sort.Ints(rep.Years)
	for s := range other {
		rep.OtherYears = append(rep.OtherYears, s)
	}
	sort.Strings(rep.OtherYears)
	return rep, nil
}

package storage

// Batches splits rows into consecutive chunks whose bound parameter count
// (rows*columns) stays within maxParams. Each chunk holds at least one row.
// With maxRows > 0 a chunk also holds at most maxRows rows.
func Batches(rows [][]any, columns, maxParams, maxRows int) [][][]any {
	if len(rows) == 0 {
		return nil
	}
	per := len(rows)
	if columns > 0 && maxParams > 0 {
		per = maxParams / columns
	}
	if maxRows > 0 && per > maxRows {
		per = maxRows
	}
	if per < 1 {
		per = 1
	}

	out := make([][][]any, 0, (len(rows)+per-1)/per)
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

// CheckRows verifies every row has one value per column.
func CheckRows(columns []string, rows [][]any) error {
	for i, r := range rows {
		if len(r) != len(columns) {
			return &RowWidthError{Row: i, Got: len(r), Want: len(columns)}
		}
	}
	return nil
}

package storage

import "fmt"

// RowWidthError reports a row whose value count differs from the column count.
type RowWidthError struct {
	Row  int
	Got  int
	Want int
}

func (e *RowWidthError) Error() string {
	return fmt.Sprintf("storage: row %d has %d values, want %d", e.Row, e.Got, e.Want)
}

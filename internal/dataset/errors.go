package dataset

import (
	"fmt"
	"strings"
)

// MissingFileError reports an input path that does not exist.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing file %s", e.Path)
}

func (e *MissingFileError) Unwrap() error { return e.Err }

// SchemaError reports expected columns absent from an input file. Column is
// the first missing source header; Columns lists all of them.
type SchemaError struct {
	Path    string
	Column  string
	Columns []string
	Err     error
}

func (e *SchemaError) Error() string {
	if len(e.Columns) > 1 {
		q := make([]string, len(e.Columns))
		for i, c := range e.Columns {
			q[i] = fmt.Sprintf("%q", c)
		}
		return fmt.Sprintf("schema: %s: missing columns %s", e.Path, strings.Join(q, ", "))
	}
	return fmt.Sprintf("schema: %s: missing column %q", e.Path, e.Column)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// EmptyResultWarning is a non-fatal diagnostic: a stage produced zero rows.
// It is reported alongside a successful result, never returned as an error.
type EmptyResultWarning struct {
	Stage string
	Path  string
}

func (w EmptyResultWarning) String() string {
	if w.Path == "" {
		return fmt.Sprintf("%s produced zero rows", w.Stage)
	}
	return fmt.Sprintf("%s produced zero rows (%s)", w.Stage, w.Path)
}

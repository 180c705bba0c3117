// Package transformer provides the pooled row container handed from the table
// readers in internal/parser to the dataset loaders.
package transformer

import "sync"

// Row is a pooled container holding one positional source record, aligned to
// the column list the reader was asked for.
//
// V[i] is either a string or nil. nil means the cell was missing or empty
// after trimming; readers never store "".
//
// Ownership contract:
//   - The reader owns the Row. It is lent to a callback for the duration of
//     one call and returned to the pool afterwards.
//   - Callbacks must copy what they need out of V before returning.
type Row struct {
	V    []any
	Line int // 1-based physical record number in the source, header included
}

var rowPool sync.Pool

// GetRow returns a pooled Row with len(V) == colCount. All elements are nil.
func GetRow(colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < colCount {
			r.V = make([]any, colCount)
		}
		r.V = r.V[:colCount]
		for i := range r.V {
			r.V[i] = nil
		}
		r.Line = 0
		return r
	}
	return &Row{V: make([]any, colCount)}
}

// Free returns the Row to the pool.
// Call this ONLY when nothing can observe r or r.V any more.
func (r *Row) Free() {
	rowPool.Put(r)
}

// Drop discards the Row WITHOUT returning it to the pool. Readers use it when
// a callback failed and may still hold on to the row.
func (r *Row) Drop() {
	r.V = nil
	r.Line = 0
}

// String returns V[i] as a string, with ok=false for nil or out-of-range cells.
func (r *Row) String(i int) (string, bool) {
	if i < 0 || i >= len(r.V) {
		return "", false
	}
	s, ok := r.V[i].(string)
	return s, ok
}

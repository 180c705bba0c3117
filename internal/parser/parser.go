// Package parser holds the contract shared by the table readers in
// internal/parser/csv and internal/parser/html: header resolution, the
// per-row callback and the missing-column error.
package parser

import (
	"fmt"
	"strings"

	"healthwealth/internal/config"
	"healthwealth/internal/transformer"
)

// RowFunc receives one pooled row. The row is only valid during the call;
// returning an error stops the reader and the error is returned unchanged.
type RowFunc func(r *transformer.Row) error

// MissingColumnsError reports requested columns absent from a header row.
// Columns holds the names as requested (after header_map), in request order.
type MissingColumnsError struct {
	Columns []string
	Header  []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing column(s) %s (header: %s)",
		quoteJoin(e.Columns), quoteJoin(e.Header))
}

func quoteJoin(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(q, ", ")
}

// CanonicalHeader applies the header options to a raw header row:
//   - trims edge whitespace and a leading UTF-8 BOM on the first cell
//   - renames through "header_map" (exact, case-sensitive source names)
//   - when "normalize_headers" is true, unmapped names are lowercased with
//     spaces replaced by underscores
//   - an unmapped name equal to a header_map target is blanked, so only the
//     mapped source can supply that column
//
// Matching is exact by default so a renamed upstream column is reported as
// missing instead of being guessed.
func CanonicalHeader(raw []string, opt config.Options) []string {
	hm := opt.StringMap("header_map")
	normalize := opt.Bool("normalize_headers", false)

	targets := make(map[string]struct{}, len(hm))
	for _, to := range hm {
		targets[to] = struct{}{}
	}

	out := make([]string, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if transformer.HasEdgeSpace(h) {
			h = strings.TrimSpace(h)
		}
		if mapped, ok := hm[h]; ok {
			out[i] = mapped
			continue
		}
		if normalize {
			h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
		}
		if _, shadowed := targets[h]; shadowed {
			h = ""
		}
		out[i] = h
	}
	return out
}

// ResolveColumns returns, for each requested column, its index in header.
//
// When columns is nil every header column is selected in source order and the
// header itself is returned as the effective column list. Duplicate header
// names resolve to their first occurrence.
func ResolveColumns(header, columns []string) (idx []int, effective []string, err error) {
	if columns == nil {
		idx = make([]int, len(header))
		for i := range header {
			idx[i] = i
		}
		return idx, append([]string(nil), header...), nil
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	idx = make([]int, len(columns))
	var missing []string
	for t, c := range columns {
		i, ok := pos[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		idx[t] = i
	}
	if len(missing) > 0 {
		return nil, nil, &MissingColumnsError{Columns: missing, Header: append([]string(nil), header...)}
	}
	return idx, append([]string(nil), columns...), nil
}

package transformer

import "strings"

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace.
// It lets the hot path skip strings.TrimSpace for the common clean cell.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// Cell converts a raw text cell into a Row value: nil for empty, else the
// (optionally trimmed) string.
func Cell(v string, trim bool) any {
	if trim && HasEdgeSpace(v) {
		v = strings.TrimSpace(v)
	}
	if v == "" {
		return nil
	}
	return v
}

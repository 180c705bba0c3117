package json

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"healthwealth/internal/config"
	"healthwealth/internal/parser"
	"healthwealth/internal/transformer"
)

// StreamRows decodes JSON records from src and calls fn once per record with
// a pooled *transformer.Row aligned to columns.
//
// Accepted shapes:
//   - a root array of objects: [{"Entity": ...}, ...]
//   - an envelope object whose records live in an array field; the field is
//     named by the "records_field" option, else the first array field is used
//
// Objects are decoded one at a time so large exports are never materialized.
// Keys are renamed through header_map like CSV headers. Numbers keep their
// literal text (json.Number), booleans become "true"/"false", null and
// missing keys become nil. Nested objects or arrays in a selected column are
// an error.
//
// JSON has no header row, so columns is required and a column that never
// appears in any record is reported as *parser.MissingColumnsError once the
// stream ends (rows have been delivered by then).
func StreamRows(
	ctx context.Context,
	src io.Reader,
	columns []string,
	opt config.Options,
	fn parser.RowFunc,
) ([]string, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("json: columns are required")
	}

	dec := json.NewDecoder(src)
	dec.UseNumber()

	// canonical name -> source key
	rev := map[string]string{}
	for orig, canon := range opt.StringMap("header_map") {
		if orig != "" && canon != "" {
			rev[canon] = orig
		}
	}
	keys := make([]string, len(columns))
	for i, c := range columns {
		keys[i] = c
		if orig, ok := rev[c]; ok {
			keys[i] = orig
		}
	}

	trim := opt.Bool("trim_space", true)
	seen := make([]bool, len(columns))
	n := 0

	emit := func(obj map[string]any) error {
		n++
		row := transformer.GetRow(len(columns))
		row.Line = n
		for i, k := range keys {
			v, ok := obj[k]
			if !ok {
				continue
			}
			seen[i] = true
			s, isNull, err := scalarText(v)
			if err != nil {
				row.Drop()
				return fmt.Errorf("json: record %d: field %q: %w", n, k, err)
			}
			if !isNull {
				row.V[i] = transformer.Cell(s, trim)
			}
		}
		if err := fn(row); err != nil {
			row.Drop()
			return err
		}
		row.Free()
		return nil
	}

	tok, err := dec.Token()
	if err == io.EOF {
		return nil, fmt.Errorf("json: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("json: read first token: %w", err)
	}

	switch tok {
	case json.Delim('['):
		if err := streamArray(ctx, dec, emit); err != nil {
			return columns, err
		}
	case json.Delim('{'):
		if err := streamEnvelope(ctx, dec, opt.String("records_field", ""), emit); err != nil {
			return columns, err
		}
	default:
		return nil, fmt.Errorf("json: unsupported root token %v (want array or object)", tok)
	}

	if n > 0 {
		var missing []string
		for i, ok := range seen {
			if !ok {
				missing = append(missing, columns[i])
			}
		}
		if len(missing) > 0 {
			return columns, &parser.MissingColumnsError{Columns: missing, Header: seenKeys(keys, seen)}
		}
	}
	return columns, nil
}

func seenKeys(keys []string, seen []bool) []string {
	var out []string
	for i, k := range keys {
		if seen[i] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// streamArray emits each object of the current array ('[' already consumed)
// and consumes the closing ']'. null elements are skipped.
func streamArray(ctx context.Context, dec *json.Decoder, emit func(map[string]any) error) error {
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("json: decode array element: %w", err)
		}
		if raw == nil {
			continue
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("json: array element is %T, want object", raw)
		}
		if err := emit(obj); err != nil {
			return err
		}
	}
	if end, err := dec.Token(); err != nil {
		return fmt.Errorf("json: read array end: %w", err)
	} else if end != json.Delim(']') {
		return fmt.Errorf("json: expected ']', got %v", end)
	}
	return nil
}

// streamEnvelope walks a root object ('{' already consumed), streams the
// records array and skips every other field.
func streamEnvelope(ctx context.Context, dec *json.Decoder, field string, emit func(map[string]any) error) error {
	found := false
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: read object key: %w", err)
		}
		key, _ := kt.(string)

		want := !found && (field == "" || key == field)
		if !want {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("json: skip field %q: %w", key, err)
			}
			continue
		}

		vt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: read field %q: %w", key, err)
		}
		if vt != json.Delim('[') {
			if field != "" {
				return fmt.Errorf("json: records_field %q is not an array", field)
			}
			if err := skipRest(dec, vt); err != nil {
				return err
			}
			continue
		}
		if err := streamArray(ctx, dec, emit); err != nil {
			return err
		}
		found = true
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("json: read object end: %w", err)
	}
	if !found {
		if field != "" {
			return fmt.Errorf("json: records_field %q not found", field)
		}
		return fmt.Errorf("json: no array of records in root object")
	}
	return nil
}

// skipRest consumes the remainder of a value whose first token was tok.
func skipRest(dec *json.Decoder, tok json.Token) error {
	d, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	depth := 1
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: skip %v value: %w", d, err)
		}
		switch t {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
	return nil
}

// scalarText renders a decoded JSON scalar as cell text.
func scalarText(v any) (s string, isNull bool, err error) {
	switch t := v.(type) {
	case nil:
		return "", true, nil
	case string:
		return t, false, nil
	case json.Number:
		return t.String(), false, nil
	case bool:
		if t {
			return "true", false, nil
		}
		return "false", false, nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return "", false, fmt.Errorf("unsupported array element %T", it)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), false, nil
	default:
		return "", false, fmt.Errorf("unsupported value %T", v)
	}
}

package json

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"healthwealth/internal/config"
	"healthwealth/internal/parser"
	"healthwealth/internal/transformer"
)

func collect(t *testing.T, in string, columns []string, opt config.Options) ([][]any, error) {
	t.Helper()

	var rows [][]any
	_, err := StreamRows(context.Background(), strings.NewReader(in), columns, opt, func(r *transformer.Row) error {
		rows = append(rows, append([]any(nil), r.V...))
		return nil
	})
	return rows, err
}

// TestStreamRows_RootArray verifies renaming, number literals, nulls and
// missing keys in the root-array shape.
func TestStreamRows_RootArray(t *testing.T) {
	t.Parallel()

	in := `[
	  {"Entity":"United States","Code":"USA","Year":2023,"GDP per capita":70000.5},
	  null,
	  {"Entity":"World","Code":null,"Year":2023,"GDP per capita":18000},
	  {"Entity":"Atlantis","Year":"2023"}
	]`
	opt := config.Options{"header_map": map[string]any{
		"Entity": "country", "Code": "code", "Year": "year", "GDP per capita": "gdp",
	}}

	rows, err := collect(t, in, []string{"country", "code", "year", "gdp"}, opt)
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	want := [][]any{
		{"United States", "USA", "2023", "70000.5"},
		{"World", nil, "2023", "18000"},
		{"Atlantis", nil, "2023", nil},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows=%#v, want %#v", rows, want)
	}
}

func TestStreamRows_Envelope(t *testing.T) {
	t.Parallel()

	in := `{"meta":{"source":"x","tags":[1,2]},"data":[{"code":"FRA","year":2023}],"other":[{"code":"NO"}]}`

	rows, err := collect(t, in, []string{"code", "year"}, nil)
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	if !reflect.DeepEqual(rows, [][]any{{"FRA", "2023"}}) {
		t.Fatalf("rows=%#v", rows)
	}

	rows, err = collect(t, in, []string{"code"}, config.Options{"records_field": "other"})
	if err != nil {
		t.Fatalf("StreamRows(records_field): %v", err)
	}
	if !reflect.DeepEqual(rows, [][]any{{"NO"}}) {
		t.Fatalf("rows=%#v", rows)
	}
}

func TestStreamRows_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		cols []string
		opt  config.Options
	}{
		{"no columns", `[]`, nil, nil},
		{"empty input", ``, []string{"a"}, nil},
		{"scalar root", `42`, []string{"a"}, nil},
		{"non-object element", `[1]`, []string{"a"}, nil},
		{"nested value", `[{"a":{"b":1}}]`, []string{"a"}, nil},
		{"no records array", `{"a":1}`, []string{"a"}, nil},
		{"records_field missing", `{"a":[]}`, []string{"a"}, config.Options{"records_field": "b"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := collect(t, tt.in, tt.cols, tt.opt); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestStreamRows_MissingColumn(t *testing.T) {
	t.Parallel()

	_, err := collect(t, `[{"code":"FRA"}]`, []string{"code", "year"}, nil)
	var mc *parser.MissingColumnsError
	if !errors.As(err, &mc) || !reflect.DeepEqual(mc.Columns, []string{"year"}) {
		t.Fatalf("expected missing year, got %v", err)
	}

	// An empty array carries no schema to check.
	if _, err := collect(t, `[]`, []string{"code"}, nil); err != nil {
		t.Fatalf("empty array: %v", err)
	}
}

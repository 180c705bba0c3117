package html

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

const page = `<!doctype html>
<html><body>
<table id="nav"><tr><td>menu</td></tr></table>
<table id="data">
  <thead>
    <tr><th>Entity</th><th>Code</th><th>Year</th><th>Life
        expectancy</th></tr>
  </thead>
  <tbody>
    <tr><td>France</td><td>FRA</td><td>2023</td><td>83.3</td></tr>
    <tr><td>Africa</td><td></td><td>2023</td><td>64.2</td></tr>
    <tr><td>Nested <table><tr><td>x</td></tr></table></td><td>NST</td><td>2023</td><td>1</td></tr>
  </tbody>
</table>
</body></html>`

func read(t *testing.T, html string, columns []string, opt config.Options) ([][]any, error) {
	t.Helper()

	var rows [][]any
	_, err := StreamTableRows(context.Background(), strings.NewReader(html), columns, opt, func(r *transformer.Row) error {
		rows = append(rows, append([]any(nil), r.V...))
		return nil
	})
	return rows, err
}

// TestStreamTableRows verifies header detection, whitespace collapsing in
// header cells, selector handling and that nested tables do not leak rows.
func TestStreamTableRows(t *testing.T) {
	t.Parallel()

	opt := config.Options{
		"table_selector": "table#data",
		"header_map":     map[string]any{"Code": "code", "Life expectancy": "life_expectancy"},
	}
	rows, err := read(t, page, []string{"code", "life_expectancy"}, opt)
	if err != nil {
		t.Fatalf("StreamTableRows: %v", err)
	}
	want := [][]any{
		{"FRA", "83.3"},
		{nil, "64.2"},
		{"NST", "1"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows=%#v, want %#v", rows, want)
	}
}

func TestStreamTableRows_HeaderFromFirstRowWithoutTH(t *testing.T) {
	t.Parallel()

	html := `<table><tr><td>a</td><td>b</td></tr><tr><td>1</td><td>2</td></tr></table>`
	rows, err := read(t, html, nil, nil)
	if err != nil {
		t.Fatalf("StreamTableRows: %v", err)
	}
	if !reflect.DeepEqual(rows, [][]any{{"1", "2"}}) {
		t.Fatalf("rows=%#v", rows)
	}
}

func TestStreamTableRows_Errors(t *testing.T) {
	t.Parallel()

	if _, err := read(t, `<p>no table</p>`, nil, nil); err == nil {
		t.Fatalf("expected error when no table matches")
	}

	_, err := read(t, page, []string{"Entity", "GDP per capita"}, config.Options{"table_selector": "#data"})
	var mc *parser.MissingColumnsError
	if !errors.As(err, &mc) || !reflect.DeepEqual(mc.Columns, []string{"GDP per capita"}) {
		t.Fatalf("expected missing GDP per capita, got %v", err)
	}
}

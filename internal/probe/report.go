package probe

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"healthwealth/internal/config"
)

// WriteReport prints a per-column summary followed by the schema match.
func (r Result) WriteReport(w io.Writer) error {
	fmt.Fprintf(w, "path=%s rows=%d skipped=%d truncated=%t\n", r.Path, r.SampleRows, r.SkippedRows, r.Truncated)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tDISTINCT\tNULLS")
	for _, c := range r.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", c.Name, c.Type, c.Distinct, c.Nulls)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	m := r.Match
	if m == nil {
		_, err := fmt.Fprintln(w, "schema=none")
		return err
	}
	fmt.Fprintf(w, "schema=%s value_column=%q exact=%t\n", m.Schema.Name, m.ValueColumn, m.Exact)
	if len(m.Missing) > 0 {
		fmt.Fprintf(w, "missing=%s\n", strings.Join(m.Missing, ","))
	}
	return nil
}

// SourcesYAML renders the suggested source as a pipeline config fragment:
//
//	sources:
//	  life_expectancy:
//	    path: ...
func (r Result) SourcesYAML() ([]byte, error) {
	src, ok := r.Source()
	if !ok {
		return nil, fmt.Errorf("probe %s: no known schema matches header %v", r.Path, r.Headers)
	}
	doc := map[string]map[string]config.Source{
		"sources": {r.Match.Schema.Name: src},
	}
	return yaml.Marshal(doc)
}

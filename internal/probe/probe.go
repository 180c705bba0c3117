// Package probe samples a source table and reports how it lines up with the
// GDP per capita and life expectancy schemas.
//
// The probe reads a bounded prefix of the file (default 20KB), cut back to
// the last complete line, infers a coarse type per column and picks the
// schema the header matches. When the value column has been renamed upstream
// the result carries a suggested config.Source with a header_map, ready to
// paste into a pipeline config.
//
// Inference is best-effort: malformed sample rows are skipped, never fatal.
package probe

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"healthwealth/internal/config"
	"healthwealth/internal/dataset"
)

// DefaultMaxBytes is the sample size used when Options.MaxBytes is zero.
const DefaultMaxBytes = 20 << 10

// Coarse column types.
const (
	TypeEmpty   = "empty"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeText    = "text"
)

// Options control sampling.
type Options struct {
	Path string
	// MaxBytes bounds the decoded sample. Zero means DefaultMaxBytes.
	MaxBytes int
	// Delimiter defaults to ','.
	Delimiter rune
}

// Column summarizes one sampled column.
type Column struct {
	Name     string
	Type     string
	Distinct int
	Nulls    int
}

// Match describes the schema the header lines up with.
type Match struct {
	Schema dataset.Schema
	// Missing lists the key headers (Entity, Code, Year) absent from the file.
	Missing []string
	// ValueColumn is the header chosen for the schema's value; empty when no
	// candidate was found.
	ValueColumn string
	// Exact is true when every projected header is present under its
	// expected name.
	Exact bool
}

// Result is the outcome of one probe.
type Result struct {
	Path       string
	Delimiter  rune
	Headers    []string
	Columns    []Column
	SampleRows int
	// SkippedRows counts sample rows whose field count did not match the
	// header.
	SkippedRows int
	// Truncated is true when the file is larger than the sample.
	Truncated bool
	// Match is nil when neither schema fits.
	Match *Match
}

// Probe samples opt.Path and infers its layout.
//
// Errors:
//   - *dataset.MissingFileError when the path does not exist
//   - a wrapped error when the header row cannot be read
func Probe(ctx context.Context, opt Options) (Result, error) {
	if opt.MaxBytes <= 0 {
		opt.MaxBytes = DefaultMaxBytes
	}
	if opt.Delimiter == 0 {
		opt.Delimiter = ','
	}
	res := Result{Path: opt.Path, Delimiter: opt.Delimiter}

	sample, truncated, err := readSample(opt.Path, opt.MaxBytes)
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Truncated = truncated

	headers, rows, skipped, err := readCSVSample(sample, opt.Delimiter)
	if err != nil {
		return res, fmt.Errorf("probe %s: %w", opt.Path, err)
	}
	res.Headers = headers
	res.SampleRows = len(rows)
	res.SkippedRows = skipped
	res.Columns = inferColumns(headers, rows)
	res.Match = matchSchema(res.Columns)
	return res, nil
}

// readSample returns at most maxBytes of decoded text from path. When the
// file is longer the sample is cut after its last newline.
func readSample(path string, maxBytes int) ([]byte, bool, error) {
	rc, err := dataset.OpenInput(path)
	if err != nil {
		return nil, false, err
	}
	defer rc.Close()

	buf := make([]byte, maxBytes+1)
	n, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, false, fmt.Errorf("probe %s: read sample: %w", path, err)
	}
	if n <= maxBytes {
		return buf[:n], false, nil
	}

	data := buf[:maxBytes]
	if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
		data = data[:i+1]
	}
	return data, true, nil
}

// readCSVSample parses the sample into a header row and the data rows whose
// field count matches it.
func readCSVSample(data []byte, delimiter rune) ([]string, [][]string, int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, 0, errors.New("empty sample: no header row")
		}
		return nil, nil, 0, err
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var (
		rows    [][]string
		skipped int
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil || len(rec) != len(headers) {
			skipped++
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, rec)
	}
	return headers, rows, skipped, nil
}

func inferColumns(headers []string, rows [][]string) []Column {
	cols := make([]Column, len(headers))
	for i, h := range headers {
		seen := make(map[string]struct{})
		allInt, allFloat := true, true
		for _, row := range rows {
			v := row[i]
			if v == "" {
				cols[i].Nulls++
				continue
			}
			seen[v] = struct{}{}
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allFloat = false
			}
		}

		typ := TypeText
		switch {
		case len(seen) == 0:
			typ = TypeEmpty
		case allInt:
			typ = TypeInteger
		case allFloat:
			typ = TypeFloat
		}
		cols[i] = Column{Name: h, Type: typ, Distinct: len(seen), Nulls: cols[i].Nulls}
	}
	return cols
}

// keywords per schema, matched case-insensitively against value candidates.
var keywords = map[string][]string{
	dataset.GDPSchema.Name:  {"gdp"},
	dataset.LifeSchema.Name: {"life expectancy", "life_expectancy", "lifeexpectancy"},
}

// matchSchema picks the schema whose value header is present verbatim, and
// failing that the schema with a numeric column named after its value.
func matchSchema(cols []Column) *Match {
	schemas := []dataset.Schema{dataset.GDPSchema, dataset.LifeSchema}
	byName := make(map[string]Column, len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}

	var missing []string
	for _, key := range []string{"Entity", "Code", "Year"} {
		if _, ok := byName[key]; !ok {
			missing = append(missing, key)
		}
	}

	for _, s := range schemas {
		if _, ok := byName[s.ValueSource]; ok {
			return &Match{Schema: s, Missing: missing, ValueColumn: s.ValueSource, Exact: len(missing) == 0}
		}
	}

	for _, s := range schemas {
		for _, c := range cols {
			if c.Type != TypeInteger && c.Type != TypeFloat {
				continue
			}
			lower := strings.ToLower(c.Name)
			for _, kw := range keywords[s.Name] {
				if strings.Contains(lower, kw) {
					return &Match{Schema: s, Missing: missing, ValueColumn: c.Name}
				}
			}
		}
	}
	return nil
}

// Source returns the config.Source to use for the probed file. ok is false
// when no schema matched.
//
// A renamed value column is mapped through header_map; a non-comma
// delimiter is carried as the "comma" option.
func (r Result) Source() (src config.Source, ok bool) {
	if r.Match == nil {
		return config.Source{}, false
	}
	src = config.Source{Path: r.Path}
	if r.Match.ValueColumn != "" && r.Match.ValueColumn != r.Match.Schema.ValueSource {
		src.Options = src.Options.With("header_map", map[string]any{
			r.Match.ValueColumn: r.Match.Schema.ValueField,
		})
	}
	if r.Delimiter != 0 && r.Delimiter != ',' {
		src.Options = src.Options.With("comma", string(r.Delimiter))
	}
	return src, true
}

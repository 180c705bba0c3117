// Package dataset implements the countries health/wealth data model and the
// transformations over it: loading the two source tables, joining them into
// MergedRecords, writing the clean CSV, extracting a single year and
// reporting row/year statistics for sanity checks.
//
// Nulls are explicit: a SourceRecord field is null when its string is empty
// or its pointer is nil. A MergedRecord has no nullable fields.
package dataset

import "strconv"

// Canonical column names shared by every table in the pipeline.
const (
	ColCountry        = "country"
	ColCode           = "code"
	ColYear           = "year"
	ColGDP            = "gdp"
	ColLifeExpectancy = "life_expectancy"
)

// MergedColumns is the header of the clean and single-year CSV artifacts.
var MergedColumns = []string{ColCountry, ColCode, ColYear, ColGDP, ColLifeExpectancy}

// Schema describes one source table: its four projected source columns and
// the explicit rename onto canonical names.
type Schema struct {
	// Name identifies the table in logs, metrics and errors.
	Name string
	// ValueSource is the source header of the measured value.
	ValueSource string
	// ValueField is the canonical name of the measured value.
	ValueField string
}

var (
	GDPSchema  = Schema{Name: "gdp", ValueSource: "GDP per capita", ValueField: ColGDP}
	LifeSchema = Schema{Name: "life_expectancy", ValueSource: "Life expectancy", ValueField: ColLifeExpectancy}
)

// SourceColumns returns the projected source headers in order.
func (s Schema) SourceColumns() []string {
	return []string{"Entity", "Code", "Year", s.ValueSource}
}

// Columns returns the canonical names of the projected columns in order.
func (s Schema) Columns() []string {
	return []string{ColCountry, ColCode, ColYear, s.ValueField}
}

// Rename maps each projected source header onto its canonical name.
func (s Schema) Rename() map[string]string {
	src, dst := s.SourceColumns(), s.Columns()
	m := make(map[string]string, len(src))
	for i := range src {
		m[src[i]] = dst[i]
	}
	return m
}

// sourceName maps a canonical column back to its source header.
func (s Schema) sourceName(canonical string) string {
	for src, dst := range s.Rename() {
		if dst == canonical {
			return src
		}
	}
	return canonical
}

// SourceRecord is one row of either source table after projection and rename.
type SourceRecord struct {
	Line    int
	Country string
	Code    string
	Year    *int
	Value   *float64
}

// MergedRecord is one row of the clean dataset.
type MergedRecord struct {
	Country        string
	Code           string
	Year           int
	GDP            float64
	LifeExpectancy float64
}

// Strings renders r in MergedColumns order. Floats use the shortest
// representation that round-trips, so output is stable across runs.
func (r MergedRecord) Strings() []string {
	return []string{
		r.Country,
		r.Code,
		strconv.Itoa(r.Year),
		formatFloat(r.GDP),
		formatFloat(r.LifeExpectancy),
	}
}

// Values renders r in MergedColumns order for SQL inserts.
func (r MergedRecord) Values() []any {
	return []any{r.Country, r.Code, r.Year, r.GDP, r.LifeExpectancy}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

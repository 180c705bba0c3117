// Package config defines the pipeline configuration shared by cmd/merge,
// cmd/singleyear and cmd/sanity.
//
// Every binary runs without arguments: Default returns the fixed file layout
// the dataset has always used. A JSON or YAML file (selected by extension) may
// override any part of it; fields omitted from the file keep their defaults.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultJob            = "countries_health_wealth"
	DefaultGDPPath        = "data/gdp-per-capita-worldbank.csv"
	DefaultLifePath       = "data/life-expectancy.csv"
	DefaultCleanPath      = "countries_health_wealth_clean.csv"
	DefaultSingleYearPath = "countries_health_wealth_single_year.csv"
	DefaultYear           = 2023
	DefaultTable          = "countries_health_wealth"
)

// Source formats understood by the loaders.
const (
	FormatCSV  = "csv"
	FormatHTML = "html"
	FormatJSON = "json"
)

// Join key columns.
const (
	KeyCode = "code"
	KeyYear = "year"
)

type Pipeline struct {
	Job        string     `json:"job" yaml:"job"`
	Sources    Sources    `json:"sources" yaml:"sources"`
	Join       Join       `json:"join" yaml:"join"`
	Filter     Filter     `json:"filter" yaml:"filter"`
	Output     Output     `json:"output" yaml:"output"`
	SingleYear SingleYear `json:"single_year" yaml:"single_year"`

	// Storage is optional. When set, cmd/merge also publishes the merged
	// records into a SQL table after the CSV artifact is written.
	Storage *Storage `json:"storage,omitempty" yaml:"storage,omitempty"`
}

type Sources struct {
	GDP            Source `json:"gdp" yaml:"gdp"`
	LifeExpectancy Source `json:"life_expectancy" yaml:"life_expectancy"`
}

// Source points at one input table.
//
// Format is "csv", "html" or "json"; when empty it is inferred from the file
// extension. Options are passed through to the parser (comma, lazy_quotes,
// trim_space, table_selector, ...).
type Source struct {
	Path    string  `json:"path" yaml:"path"`
	Format  string  `json:"format,omitempty" yaml:"format,omitempty"`
	Options Options `json:"options,omitempty" yaml:"options,omitempty"`
}

// ResolvedFormat returns the explicit format or the one implied by Path.
func (s Source) ResolvedFormat() string {
	if f := strings.ToLower(strings.TrimSpace(s.Format)); f != "" {
		return f
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".html", ".htm":
		return FormatHTML
	case ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// Join selects the join key policy: ["code","year"] (default) or ["code"].
type Join struct {
	Keys []string `json:"keys" yaml:"keys"`
}

// ByYear reports whether year is part of the join key.
func (j Join) ByYear() bool {
	for _, k := range j.Keys {
		if strings.EqualFold(strings.TrimSpace(k), KeyYear) {
			return true
		}
	}
	return false
}

type Filter struct {
	// DropCodePrefixes drops rows whose code starts with any prefix, in
	// addition to rows without a code (e.g. "OWID_" pseudo-countries).
	DropCodePrefixes []string `json:"drop_code_prefixes,omitempty" yaml:"drop_code_prefixes,omitempty"`
}

type Output struct {
	Path string `json:"path" yaml:"path"`
}

// SingleYear configures the extractor. Input defaults to the merger output.
type SingleYear struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
	Year   int    `json:"year" yaml:"year"`
}

type Storage struct {
	// Kind is "sqlite" | "postgres" | "mssql" | "mysql".
	Kind string `json:"kind" yaml:"kind"`
	// DSN is expanded with os.ExpandEnv before use.
	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table" yaml:"table"`
}

// Default returns the fixed-path configuration used when no file is given.
func Default() Pipeline {
	var p Pipeline
	ApplyDefaults(&p)
	return p
}

// ApplyDefaults fills zero-valued fields with the fixed defaults.
// SingleYear.Input follows Output.Path unless set explicitly.
func ApplyDefaults(p *Pipeline) {
	if strings.TrimSpace(p.Job) == "" {
		p.Job = DefaultJob
	}
	if p.Sources.GDP.Path == "" {
		p.Sources.GDP.Path = DefaultGDPPath
	}
	if p.Sources.LifeExpectancy.Path == "" {
		p.Sources.LifeExpectancy.Path = DefaultLifePath
	}
	if len(p.Join.Keys) == 0 {
		p.Join.Keys = []string{KeyCode, KeyYear}
	}
	if p.Output.Path == "" {
		p.Output.Path = DefaultCleanPath
	}
	if p.SingleYear.Input == "" {
		p.SingleYear.Input = p.Output.Path
	}
	if p.SingleYear.Output == "" {
		p.SingleYear.Output = DefaultSingleYearPath
	}
	if p.SingleYear.Year == 0 {
		p.SingleYear.Year = DefaultYear
	}
	if p.Storage != nil && strings.TrimSpace(p.Storage.Table) == "" {
		p.Storage.Table = DefaultTable
	}
}

// Load reads a pipeline config from path. ".yaml" and ".yml" files are decoded
// as YAML, everything else as JSON. Unknown JSON fields are rejected so typos
// surface instead of silently falling back to defaults.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(b, filepath.Ext(path))
}

// Decode parses config bytes. ext selects the format as in Load.
func Decode(b []byte, ext string) (Pipeline, error) {
	var p Pipeline

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &p); err != nil {
			return Pipeline{}, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("decode json config: %w", err)
		}
	}

	ApplyDefaults(&p)
	return p, nil
}

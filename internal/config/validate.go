package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path is the dotted config path.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var storageKinds = map[string]bool{
	"sqlite":   true,
	"postgres": true,
	"mssql":    true,
	"mysql":    true,
}

// ValidatePipeline checks p for problems that would make a run fail or
// silently produce the wrong dataset. It never mutates p.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	add := func(sev Severity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	for _, s := range []struct {
		path string
		src  Source
	}{
		{"sources.gdp", p.Sources.GDP},
		{"sources.life_expectancy", p.Sources.LifeExpectancy},
	} {
		if strings.TrimSpace(s.src.Path) == "" {
			add(SeverityError, s.path+".path", "must not be empty")
		}
		switch f := s.src.ResolvedFormat(); f {
		case FormatCSV, FormatHTML, FormatJSON:
		default:
			add(SeverityError, s.path+".format", "unsupported format %q (want csv, html or json)", f)
		}
	}

	issues = append(issues, validateJoin(p.Join)...)

	for i, prefix := range p.Filter.DropCodePrefixes {
		if strings.TrimSpace(prefix) == "" {
			add(SeverityError, fmt.Sprintf("filter.drop_code_prefixes[%d]", i), "must not be empty")
		}
	}

	out := strings.TrimSpace(p.Output.Path)
	if out == "" {
		add(SeverityError, "output.path", "must not be empty")
	} else {
		for _, in := range []string{p.Sources.GDP.Path, p.Sources.LifeExpectancy.Path} {
			if in != "" && filepath.Clean(in) == filepath.Clean(out) {
				add(SeverityError, "output.path", "must differ from source path %q", in)
			}
		}
	}

	if p.SingleYear.Year <= 0 {
		add(SeverityError, "single_year.year", "must be a positive year, got %d", p.SingleYear.Year)
	}
	if p.SingleYear.Input != "" && filepath.Clean(p.SingleYear.Input) == filepath.Clean(p.SingleYear.Output) {
		add(SeverityError, "single_year.output", "must differ from single_year.input")
	}

	if st := p.Storage; st != nil {
		kind := strings.ToLower(strings.TrimSpace(st.Kind))
		if !storageKinds[kind] {
			add(SeverityError, "storage.kind", "unsupported kind %q (want sqlite, postgres, mssql or mysql)", st.Kind)
		}
		if strings.TrimSpace(st.DSN) == "" {
			add(SeverityError, "storage.dsn", "must not be empty")
		}
		if strings.TrimSpace(st.Table) == "" {
			add(SeverityWarning, "storage.table", "empty; %q will be used", DefaultTable)
		}
	}

	return issues
}

func validateJoin(j Join) []Issue {
	seen := map[string]bool{}
	for _, k := range j.Keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != KeyCode && k != KeyYear {
			return []Issue{{SeverityError, "join.keys", fmt.Sprintf("unsupported key %q (want code or year)", k)}}
		}
		if seen[k] {
			return []Issue{{SeverityError, "join.keys", fmt.Sprintf("duplicate key %q", k)}}
		}
		seen[k] = true
	}
	if !seen[KeyCode] {
		return []Issue{{SeverityError, "join.keys", "must include code"}}
	}
	if !seen[KeyYear] {
		return []Issue{{SeverityWarning, "join.keys", "code-only join matches life expectancy values from any year"}}
	}
	return nil
}

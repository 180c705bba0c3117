// Command probe samples a source table and prints the pipeline config
// fragment needed to load it.
//
// Usage (config fragment on stdout):
//
//	probe -in data/life-expectancy.csv
//
// Usage (column report instead of config):
//
//	probe -in data/gdp-per-capita-worldbank.csv -report
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"healthwealth/internal/cli"
	"healthwealth/internal/probe"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run returns 0 on success, 2 for usage errors and 1 for runtime errors,
// including a file that matches no known schema.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	inPath := fs.String("in", "", "Source file to sample (required)")
	maxBytes := fs.Int("bytes", probe.DefaultMaxBytes, "Sample size in bytes")
	comma := fs.String("comma", ",", "CSV delimiter (single character)")
	report := fs.Bool("report", false, "Print a column report instead of the config fragment")

	if err := fs.Parse(args); err != nil {
		return cli.ExitUsage
	}
	if *inPath == "" {
		fmt.Fprintln(stderr, "missing -in")
		return cli.ExitUsage
	}
	if *maxBytes <= 0 {
		fmt.Fprintln(stderr, "-bytes must be > 0")
		return cli.ExitUsage
	}
	delim, size := utf8.DecodeRuneInString(*comma)
	if *comma == `\t` {
		delim, size = '\t', len(*comma)
	}
	if size != len(*comma) || delim == utf8.RuneError {
		fmt.Fprintf(stderr, "-comma must be a single character, got %q\n", *comma)
		return cli.ExitUsage
	}

	res, err := probe.Probe(ctx, probe.Options{Path: *inPath, MaxBytes: *maxBytes, Delimiter: delim})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitFailure
	}

	if *report {
		if err := res.WriteReport(stdout); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return cli.ExitFailure
		}
		return cli.ExitOK
	}

	b, err := res.SourcesYAML()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitFailure
	}
	if res.Match != nil && len(res.Match.Missing) > 0 {
		fmt.Fprintf(stderr, "warning: %s lacks columns %v\n", *inPath, res.Match.Missing)
	}
	if _, err := stdout.Write(b); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitFailure
	}
	return cli.ExitOK
}

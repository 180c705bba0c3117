// Command sanity prints the row count and distinct years of a CSV artifact,
// by default countries_health_wealth_single_year.csv.
//
// Usage:
//
//	sanity
//	sanity -in countries_health_wealth_clean.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"healthwealth/internal/cli"
	"healthwealth/internal/pipeline"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run returns 0 on success, 2 for usage/config errors and 1 for runtime
// errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sanity", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to pipeline config (.json, .yaml); fixed paths when empty")
	inPath := fs.String("in", "", "CSV to check (default: the single-year output)")
	verbose := fs.Bool("v", false, "Log stage lines to stderr")

	if err := fs.Parse(args); err != nil {
		return cli.ExitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return cli.ExitUsage
	}

	cfg, err := cli.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitUsage
	}
	path := cfg.SingleYear.Output
	if *inPath != "" {
		path = *inPath
	}

	r := pipeline.NewDefaultRunner(cli.NewLogger(stderr, *verbose))
	rep, err := r.Check(ctx, path)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitFailure
	}

	fmt.Fprint(stdout, rep.String())
	return cli.ExitOK
}

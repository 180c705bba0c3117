// Command singleyear keeps the rows of the merged dataset for one year
// (default 2023) and writes them to countries_health_wealth_single_year.csv.
//
// Usage:
//
//	singleyear
//	singleyear -year 2021 -out countries_2021.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"healthwealth/internal/cli"
	"healthwealth/internal/config"
	"healthwealth/internal/pipeline"

	"github.com/google/uuid"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

var newRunID = uuid.NewString

// run returns 0 on success, 2 for usage/config errors and 1 for runtime
// errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("singleyear", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to pipeline config (.json, .yaml); fixed paths when empty")
	inPath := fs.String("in", "", "Override merged CSV input path")
	outPath := fs.String("out", "", "Override single-year CSV output path")
	year := fs.Int("year", 0, fmt.Sprintf("Year to keep (default %d)", config.DefaultYear))
	metricsBackend := fs.String("metrics-backend", "", "Metrics backend: none or datadog (default $METRICS_BACKEND or none)")
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
	if *inPath != "" {
		cfg.SingleYear.Input = *inPath
	}
	if *outPath != "" {
		cfg.SingleYear.Output = *outPath
	}
	yearSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "year" {
			yearSet = true
		}
	})
	if yearSet {
		cfg.SingleYear.Year = *year
	}

	if cli.ReportIssues(stderr, config.ValidatePipeline(cfg)) {
		return cli.ExitUsage
	}

	logger := cli.NewLogger(stderr, *verbose)
	runID := newRunID()

	cleanup, err := cli.InitMetrics(ctx, cli.MetricsOptions{
		Backend: *metricsBackend,
		Job:     cfg.Job + "_single_year",
		RunID:   runID,
		Logger:  logger,
		Stderr:  stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitUsage
	}
	defer cleanup()

	r := pipeline.NewDefaultRunner(logger)
	r.NewRunID = func() string { return runID }

	res, err := r.ExtractYear(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitFailure
	}
	if res.Warning != nil {
		fmt.Fprintf(stderr, "warning: %s\n", res.Warning)
	}

	fmt.Fprintln(stdout, "Single year dataset created.")
	fmt.Fprintf(stdout, "year=%d rows=%d kept=%d path=%s\n", cfg.SingleYear.Year, res.Stats.Rows, res.Stats.Kept, cfg.SingleYear.Output)
	return cli.ExitOK
}

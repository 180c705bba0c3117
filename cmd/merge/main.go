// Command merge joins the GDP per capita and life expectancy tables into
// countries_health_wealth_clean.csv.
//
// Usage (fixed paths):
//
//	merge
//
// Usage (config file, publish to SQLite):
//
//	merge -config pipeline.yaml -v
//
// Validate a config without running:
//
//	merge -config pipeline.yaml -validate
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"healthwealth/internal/cli"
	"healthwealth/internal/config"
	"healthwealth/internal/dataset"
	"healthwealth/internal/pipeline"
	_ "healthwealth/internal/storage/all"

	"github.com/google/uuid"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// Seams for tests.
var (
	newRunID    = uuid.NewString
	initMetrics = cli.InitMetrics
)

// run returns 0 on success, 2 for usage/config errors and 1 for runtime
// errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to pipeline config (.json, .yaml); fixed paths when empty")
	gdpPath := fs.String("gdp", "", "Override GDP per capita source path")
	lifePath := fs.String("life", "", "Override life expectancy source path")
	outPath := fs.String("out", "", "Override merged CSV path")
	metricsBackend := fs.String("metrics-backend", "", "Metrics backend: none or datadog (default $METRICS_BACKEND or none)")
	verbose := fs.Bool("v", false, "Log stage lines to stderr")
	validateOnly := fs.Bool("validate", false, "Validate the config and exit")

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
	if *gdpPath != "" {
		cfg.Sources.GDP.Path = *gdpPath
	}
	if *lifePath != "" {
		cfg.Sources.LifeExpectancy.Path = *lifePath
	}
	if *outPath != "" {
		cfg.Output.Path = *outPath
	}

	if cli.ReportIssues(stderr, config.ValidatePipeline(cfg)) {
		return cli.ExitUsage
	}
	if *validateOnly {
		fmt.Fprintln(stdout, "config ok")
		return cli.ExitOK
	}

	logger := cli.NewLogger(stderr, *verbose)
	runID := newRunID()

	cleanup, err := initMetrics(ctx, cli.MetricsOptions{
		Backend: *metricsBackend,
		Job:     cfg.Job,
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

	res, err := r.Merge(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitFailure
	}
	if res.Warning != nil {
		fmt.Fprintf(stderr, "warning: %s\n", res.Warning)
	}

	fmt.Fprintln(stdout, "Clean dataset saved.")
	fmt.Fprintf(stdout, "rows=%d gdp_rows=%d life_rows=%d aggregates_dropped=%d unmatched_gdp=%d dropped_null=%d\n",
		res.Stats.Merged, res.Stats.GDPRows, res.Stats.LifeRows,
		res.Stats.GDPAggregates+res.Stats.LifeAggregates, res.Stats.UnmatchedGDP, res.Stats.DroppedNull)
	if cfg.Storage != nil {
		fmt.Fprintf(stdout, "published=%d table=%s\n", res.Published, cfg.Storage.Table)
	}
	if err := printHead(stdout, res); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitFailure
	}
	return cli.ExitOK
}

// printHead writes the first merged rows as CSV, header included.
func printHead(w io.Writer, res pipeline.MergeResult) error {
	if len(res.Head) == 0 {
		return nil
	}
	return dataset.WriteCSV(w, res.Head)
}

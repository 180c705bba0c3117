// Package cli holds the flag-independent plumbing shared by the binaries:
// configuration loading and validation output, logger setup and metrics
// backend selection.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"healthwealth/internal/config"
	"healthwealth/internal/metrics"
	"healthwealth/internal/metrics/datadog"
)

// Exit codes shared by the binaries.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// LoadConfig returns config.Default when path is empty and the decoded file
// otherwise.
func LoadConfig(path string) (config.Pipeline, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// ReportIssues writes one line per issue to w and reports whether any of them
// is an error.
func ReportIssues(w io.Writer, issues []config.Issue) bool {
	for _, iss := range issues {
		fmt.Fprintln(w, iss.String())
	}
	return config.HasErrors(issues)
}

// NewLogger returns a stderr logger when verbose is set and a discarding one
// otherwise.
func NewLogger(stderr io.Writer, verbose bool) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(stderr, "", log.LstdFlags)
}

// MetricsOptions selects and tags the metrics backend.
type MetricsOptions struct {
	// Backend is "none" or "datadog". Empty falls back to METRICS_BACKEND,
	// then "none".
	Backend string
	Job     string
	RunID   string
	Logger  *log.Logger
	// Stderr receives warnings that must be seen without -v. When nil they go
	// to Logger.
	Stderr  io.Writer
}

type metricsBackend interface {
	metrics.Backend
	Close() error
}

// Seams for tests.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		return datadog.NewBackend(ctx, opts)
	}
	setMetricsBackend = func(b metrics.Backend) { metrics.SetBackend(b) }
)

// InitMetrics installs the selected metrics backend. The returned cleanup is
// never nil; it performs the final flush and must be called once before exit.
//
// A backend that fails to initialize is logged and metrics stay disabled; the
// run itself proceeds. An unknown backend name is an error.
func InitMetrics(ctx context.Context, opts MetricsOptions) (func(), error) {
	logf := opts.Logger
	if logf == nil {
		logf = log.New(io.Discard, "", 0)
	}
	nop := func() {}

	name := strings.ToLower(strings.TrimSpace(opts.Backend))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_BACKEND")))
	}

	switch name {
	case "", "none", "noop":
		return nop, nil

	case "datadog", "dd":
		tags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    opts.Job,
			RunID:      opts.RunID,
			Tags:       tags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			if opts.Stderr != nil {
				fmt.Fprintf(opts.Stderr, "warning: metrics: failed to init datadog backend: %v; metrics disabled\n", err)
			} else {
				logf.Printf("metrics: failed to init datadog backend: %v; metrics disabled", err)
			}
			return nop, nil
		}
		logf.Printf("metrics: backend=datadog job_name=%s tags=%v", opts.Job, tags)
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logf.Printf("metrics: datadog close error: %v", err)
			}
			setMetricsBackend(nil)
		}, nil

	default:
		return nop, fmt.Errorf("unknown metrics backend %q (want none or datadog)", name)
	}
}

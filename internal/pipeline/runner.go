// Package pipeline runs the dataset stages with logging, metrics and the
// optional database publish around them. cmd/merge, cmd/singleyear and
// cmd/sanity are thin flag layers over Runner.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"healthwealth/internal/config"
	"healthwealth/internal/dataset"
	"healthwealth/internal/metrics"
	"healthwealth/internal/storage"
)

// Logger is the minimal logging interface used by the runner.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Runner executes pipeline stages. The zero value is usable: it logs
// nothing and resolves storage backends through storage.New.
type Runner struct {
	Logger Logger

	// NewRepository is the storage factory seam.
	NewRepository func(ctx context.Context, cfg storage.Config) (storage.Repository, error)

	// NewRunID returns the identifier attached to every log line of a run.
	NewRunID func() string

	now func() time.Time
}

// NewDefaultRunner returns a Runner logging to logger.
func NewDefaultRunner(logger Logger) *Runner {
	return &Runner{
		Logger:        logger,
		NewRepository: storage.New,
		NewRunID:      uuid.NewString,
		now:           time.Now,
	}
}

// MergeResult summarizes one Merge run.
type MergeResult struct {
	RunID string
	Path  string
	// Digest is the hex SHA-256 of the written artifact.
	Digest string

	GDP   dataset.LoadStats
	Life  dataset.LoadStats
	Stats dataset.MergeStats

	// Published is the number of rows written to storage, 0 when storage is
	// not configured.
	Published int64

	// Warning is set when the join produced no rows.
	Warning *dataset.EmptyResultWarning

	// Head holds the first HeadRows merged records, in output order.
	Head []dataset.MergedRecord
}

// HeadRows is the number of records kept in MergeResult.Head.
const HeadRows = 5

// Merge loads both sources, joins them and writes the merged CSV to
// cfg.Output.Path. When cfg.Storage is set the same records then replace the
// contents of the configured table; the CSV is complete before publishing
// starts, so a publish failure leaves a valid artifact behind.
func (r *Runner) Merge(ctx context.Context, cfg config.Pipeline) (MergeResult, error) {
	res := MergeResult{RunID: r.runID(), Path: cfg.Output.Path}
	logf := r.logf(res.RunID)
	logf("stage=start job=%s gdp=%s life=%s out=%s join=%s",
		cfg.Job, cfg.Sources.GDP.Path, cfg.Sources.LifeExpectancy.Path, cfg.Output.Path, strings.Join(cfg.Join.Keys, "+"))

	var gdp, life []dataset.SourceRecord
	err := r.stage(logf, "load_gdp", func() (string, error) {
		var err error
		gdp, res.GDP, err = dataset.Load(ctx, cfg.Sources.GDP, dataset.GDPSchema)
		metrics.RecordRows("gdp_read", res.GDP.Rows)
		return fmt.Sprintf("rows=%d invalid_cells=%d", res.GDP.Rows, res.GDP.InvalidCells), err
	})
	if err != nil {
		return res, err
	}

	err = r.stage(logf, "load_life_expectancy", func() (string, error) {
		var err error
		life, res.Life, err = dataset.Load(ctx, cfg.Sources.LifeExpectancy, dataset.LifeSchema)
		metrics.RecordRows("life_expectancy_read", res.Life.Rows)
		return fmt.Sprintf("rows=%d invalid_cells=%d", res.Life.Rows, res.Life.InvalidCells), err
	})
	if err != nil {
		return res, err
	}

	var recs []dataset.MergedRecord
	err = r.stage(logf, "merge", func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		recs, res.Stats = dataset.Merge(gdp, life, dataset.MergeOptions{
			ByYear:           cfg.Join.ByYear(),
			DropCodePrefixes: cfg.Filter.DropCodePrefixes,
		})
		s := res.Stats
		metrics.RecordRows("aggregates_dropped", s.GDPAggregates+s.LifeAggregates)
		metrics.RecordRows("unmatched", s.UnmatchedGDP)
		metrics.RecordRows("null_dropped", s.DroppedNull)
		metrics.RecordRows("merged", s.Merged)
		return fmt.Sprintf("gdp_aggregates=%d life_aggregates=%d unmatched_gdp=%d dropped_null=%d merged=%d",
			s.GDPAggregates, s.LifeAggregates, s.UnmatchedGDP, s.DroppedNull, s.Merged), nil
	})
	if err != nil {
		return res, err
	}

	err = r.stage(logf, "write", func() (string, error) {
		var err error
		res.Digest, err = dataset.WriteFile(cfg.Output.Path, func(w io.Writer) error {
			return dataset.WriteCSV(w, recs)
		})
		return fmt.Sprintf("path=%s rows=%d sha256=%s", cfg.Output.Path, len(recs), res.Digest), err
	})
	if err != nil {
		return res, err
	}

	res.Head = recs[:min(len(recs), HeadRows)]
	if len(recs) == 0 {
		res.Warning = &dataset.EmptyResultWarning{Stage: "merge", Path: cfg.Output.Path}
		logf("warning: %s", res.Warning)
	}

	if cfg.Storage != nil {
		err = r.stage(logf, "publish", func() (string, error) {
			var err error
			res.Published, err = r.publish(ctx, *cfg.Storage, recs)
			metrics.RecordRows("published", int(res.Published))
			return fmt.Sprintf("kind=%s table=%s rows=%d", cfg.Storage.Kind, cfg.Storage.Table, res.Published), err
		})
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

// publish replaces the table contents with recs.
func (r *Runner) publish(ctx context.Context, st config.Storage, recs []dataset.MergedRecord) (int64, error) {
	newRepo := r.NewRepository
	if newRepo == nil {
		newRepo = storage.New
	}

	repo, err := newRepo(ctx, storage.Config{
		Kind: strings.ToLower(strings.TrimSpace(st.Kind)),
		DSN:  os.ExpandEnv(st.DSN),
	})
	if err != nil {
		return 0, fmt.Errorf("storage: %w", err)
	}
	defer repo.Close()

	spec := storage.CountriesTable(st.Table)
	if err := repo.EnsureTable(ctx, spec); err != nil {
		return 0, err
	}

	rows := make([][]any, len(recs))
	for i, rec := range recs {
		rows[i] = rec.Values()
	}
	return repo.ReplaceRows(ctx, spec.Name, spec.ColumnNames(), rows)
}

// ExtractResult summarizes one ExtractYear run.
type ExtractResult struct {
	RunID   string
	Stats   dataset.ExtractStats
	Warning *dataset.EmptyResultWarning
}

// ExtractYear writes the rows of cfg.SingleYear.Input for cfg.SingleYear.Year
// to cfg.SingleYear.Output.
func (r *Runner) ExtractYear(ctx context.Context, cfg config.Pipeline) (ExtractResult, error) {
	sy := cfg.SingleYear
	res := ExtractResult{RunID: r.runID()}
	logf := r.logf(res.RunID)

	err := r.stage(logf, "extract_year", func() (string, error) {
		var err error
		res.Stats, res.Warning, err = dataset.ExtractYear(ctx, sy.Input, sy.Output, sy.Year)
		metrics.RecordRows("single_year_kept", res.Stats.Kept)
		return fmt.Sprintf("in=%s out=%s year=%d rows=%d kept=%d", sy.Input, sy.Output, sy.Year, res.Stats.Rows, res.Stats.Kept), err
	})
	if err != nil {
		return res, err
	}
	if res.Warning != nil {
		logf("warning: %s", res.Warning)
	}
	return res, nil
}

// Check reports row count and distinct years of the CSV at path.
func (r *Runner) Check(ctx context.Context, path string) (dataset.Report, error) {
	logf := r.logf(r.runID())

	var rep dataset.Report
	err := r.stage(logf, "sanity", func() (string, error) {
		var err error
		rep, err = dataset.Check(ctx, path)
		return fmt.Sprintf("path=%s rows=%d years=%d", path, rep.Rows, len(rep.Years)+len(rep.OtherYears)), err
	})
	return rep, err
}

// stage times fn, logs its outcome and records step metrics. fn returns the
// key=value details for the log line.
func (r *Runner) stage(logf func(string, ...any), name string, fn func() (string, error)) error {
	start := r.clock()()
	detail, err := fn()
	dur := r.clock()().Sub(start).Truncate(time.Millisecond)

	if err != nil {
		metrics.RecordStep(name, "error", dur)
		logf("stage=%s status=error duration=%s err=%v", name, dur, err)
		return err
	}
	metrics.RecordStep(name, "ok", dur)
	logf("stage=%s ok %s duration=%s", name, detail, dur)
	return nil
}

func (r *Runner) runID() string {
	if r.NewRunID == nil {
		return uuid.NewString()
	}
	return r.NewRunID()
}

func (r *Runner) clock() func() time.Time {
	if r.now == nil {
		return time.Now
	}
	return r.now
}

func (r *Runner) logf(runID string) func(format string, v ...any) {
	var l Logger = r.Logger
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	return func(format string, v ...any) {
		l.Printf("run_id=%s "+format, append([]any{runID}, v...)...)
	}
}

package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"healthwealth/internal/config"
	"healthwealth/internal/dataset"
	"healthwealth/internal/storage"
	_ "healthwealth/internal/storage/sqlite"
)

type fakeLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *fakeLogger) Printf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, fmt.Sprintf(format, v...))
}

func (l *fakeLogger) find(substr string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if strings.Contains(m, substr) {
			return m, true
		}
	}
	return "", false
}

const (
	gdpCSV = `Entity,Code,Year,GDP per capita
World,,2023,18000
United States,USA,2023,70000
France,FRA,2023,45000
France,FRA,2022,44000
Chile,CHL,2023,30000
`
	lifeCSV = `Entity,Code,Year,Life expectancy
World,,2023,73
United States,USA,2023,78.5
France,FRA,2023,83
France,FRA,2022,82.5
Peru,PER,2023,77
`
)

// newTestRunner returns a runner with a fixed run id and clock.
func newTestRunner(logger Logger) *Runner {
	return &Runner{
		Logger:        logger,
		NewRepository: storage.New,
		NewRunID:      func() string { return "run-1" },
		now:           func() time.Time { return time.Unix(0, 0) },
	}
}

func testConfig(t *testing.T) config.Pipeline {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	cfg := config.Pipeline{}
	cfg.Sources.GDP.Path = write("gdp.csv", gdpCSV)
	cfg.Sources.LifeExpectancy.Path = write("life.csv", lifeCSV)
	cfg.Output.Path = filepath.Join(dir, "clean.csv")
	cfg.SingleYear.Output = filepath.Join(dir, "single.csv")
	config.ApplyDefaults(&cfg)
	return cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

// TestMerge_EndToEnd verifies the artifact, its counts and the stage logs.
func TestMerge_EndToEnd(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	logger := &fakeLogger{}
	res, err := newTestRunner(logger).Merge(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	want := "country,code,year,gdp,life_expectancy\n" +
		"France,FRA,2022,44000,82.5\n" +
		"France,FRA,2023,45000,83\n" +
		"United States,USA,2023,70000,78.5\n"
	if got := readFile(t, cfg.Output.Path); got != want {
		t.Fatalf("artifact:\n%s\nwant:\n%s", got, want)
	}

	if res.RunID != "run-1" || res.Stats.Merged != 3 || res.Stats.GDPAggregates != 1 || res.Stats.UnmatchedGDP != 1 {
		t.Fatalf("result %+v", res)
	}
	if res.Warning != nil {
		t.Fatalf("unexpected warning %v", res.Warning)
	}
	if len(res.Head) != 3 || res.Head[0].Code != "FRA" || res.Head[0].Year != 2022 {
		t.Fatalf("head %+v", res.Head)
	}

	for _, s := range []string{
		"run_id=run-1 stage=load_gdp ok rows=5",
		"stage=load_life_expectancy ok rows=5",
		"stage=merge ok gdp_aggregates=1 life_aggregates=1 unmatched_gdp=1 dropped_null=0 merged=3",
		"stage=write ok path=" + cfg.Output.Path + " rows=3 sha256=" + res.Digest,
	} {
		if _, ok := logger.find(s); !ok {
			t.Fatalf("missing log %q in %v", s, logger.msgs)
		}
	}
	if _, ok := logger.find("stage=publish"); ok {
		t.Fatalf("publish must not run without storage config")
	}
}

// TestMerge_Idempotent verifies two runs over unchanged inputs produce
// byte-identical artifacts.
func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	r := newTestRunner(nil)

	first, err := r.Merge(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first Merge: %v", err)
	}
	b1 := readFile(t, cfg.Output.Path)

	second, err := r.Merge(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if b2 := readFile(t, cfg.Output.Path); b1 != b2 || first.Digest != second.Digest {
		t.Fatalf("re-run changed the artifact")
	}
}

func TestMerge_EmptyJoinWarns(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	if err := os.WriteFile(cfg.Sources.LifeExpectancy.Path, []byte("Entity,Code,Year,Life expectancy\nPeru,PER,2023,77\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := &fakeLogger{}
	res, err := newTestRunner(logger).Merge(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Warning == nil {
		t.Fatalf("expected empty-result warning")
	}
	if got := readFile(t, cfg.Output.Path); got != "country,code,year,gdp,life_expectancy\n" {
		t.Fatalf("artifact %q", got)
	}
	if _, ok := logger.find("warning: merge produced zero rows"); !ok {
		t.Fatalf("warning not logged: %v", logger.msgs)
	}
}

// TestMerge_MissingSource verifies typed errors survive and nothing is
// written.
func TestMerge_MissingSource(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Sources.LifeExpectancy.Path = filepath.Join(t.TempDir(), "absent.csv")

	logger := &fakeLogger{}
	_, err := newTestRunner(logger).Merge(context.Background(), cfg)

	var mf *dataset.MissingFileError
	if !errors.As(err, &mf) || mf.Path != cfg.Sources.LifeExpectancy.Path {
		t.Fatalf("err=%v, want MissingFileError", err)
	}
	if _, statErr := os.Stat(cfg.Output.Path); !os.IsNotExist(statErr) {
		t.Fatalf("artifact written despite failure")
	}
	if _, ok := logger.find("stage=load_life_expectancy status=error"); !ok {
		t.Fatalf("error stage not logged: %v", logger.msgs)
	}
}

// cancelingLogger cancels its context once a log line contains after.
type cancelingLogger struct {
	fakeLogger
	after  string
	cancel context.CancelFunc
}

func (l *cancelingLogger) Printf(format string, v ...any) {
	l.fakeLogger.Printf(format, v...)
	if strings.Contains(fmt.Sprintf(format, v...), l.after) {
		l.cancel()
	}
}

// TestMerge_CanceledBeforeJoin verifies a merge stage failure stops the run
// before anything is written.
func TestMerge_CanceledBeforeJoin(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := &cancelingLogger{after: "stage=load_life_expectancy ok", cancel: cancel}

	_, err := newTestRunner(logger).Merge(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if _, ok := logger.find("stage=merge status=error"); !ok {
		t.Fatalf("merge failure not logged: %v", logger.msgs)
	}
	if _, ok := logger.find("stage=write"); ok {
		t.Fatalf("write stage ran after a failed merge")
	}
	if _, statErr := os.Stat(cfg.Output.Path); !os.IsNotExist(statErr) {
		t.Fatalf("artifact written despite failure")
	}
}

// TestMerge_PublishesToSQLite runs the publish stage against a real SQLite
// file, twice, and expects the table to hold one snapshot.
func TestMerge_PublishesToSQLite(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	dbPath := filepath.Join(t.TempDir(), "countries.db")
	cfg.Storage = &config.Storage{Kind: "SQLite", DSN: dbPath}
	config.ApplyDefaults(&cfg)

	r := newTestRunner(nil)
	for i := 0; i < 2; i++ {
		res, err := r.Merge(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Merge #%d: %v", i, err)
		}
		if res.Published != 3 {
			t.Fatalf("published=%d, want 3", res.Published)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "countries_health_wealth"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("rows in table=%d, want 3", n)
	}
}

type failingRepo struct{ closed bool }

func (f *failingRepo) Close()                                               { f.closed = true }
func (f *failingRepo) EnsureTable(context.Context, storage.TableSpec) error { return nil }
func (f *failingRepo) ReplaceRows(context.Context, string, []string, [][]any) (int64, error) {
	return 0, errors.New("connection reset")
}

// TestMerge_PublishFailureKeepsArtifact verifies a publish error is returned
// after the CSV has been written, and the repository is closed.
func TestMerge_PublishFailureKeepsArtifact(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage = &config.Storage{Kind: "postgres", DSN: "postgres://$PGUSER@db/stats", Table: "countries"}

	t.Setenv("PGUSER", "etl")
	repo := &failingRepo{}
	var gotDSN string
	r := newTestRunner(nil)
	r.NewRepository = func(_ context.Context, sc storage.Config) (storage.Repository, error) {
		gotDSN = sc.DSN
		return repo, nil
	}

	_, err := r.Merge(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("err=%v", err)
	}
	if gotDSN != "postgres://etl@db/stats" {
		t.Fatalf("dsn=%q, want env-expanded", gotDSN)
	}
	if !repo.closed {
		t.Fatalf("repository not closed")
	}
	if _, statErr := os.Stat(cfg.Output.Path); statErr != nil {
		t.Fatalf("artifact missing after publish failure: %v", statErr)
	}
}

func TestExtractYearAndCheck(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	r := newTestRunner(nil)
	if _, err := r.Merge(context.Background(), cfg); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	res, err := r.ExtractYear(context.Background(), cfg)
	if err != nil {
		t.Fatalf("ExtractYear: %v", err)
	}
	if res.Stats.Rows != 3 || res.Stats.Kept != 2 || res.Warning != nil {
		t.Fatalf("result %+v", res)
	}

	rep, err := r.Check(context.Background(), cfg.SingleYear.Output)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got := rep.String(); got != "Number of rows: 2\nUnique years: 2023\n" {
		t.Fatalf("report %q", got)
	}
}

func TestExtractYear_NoMatchWarns(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	r := newTestRunner(nil)
	if _, err := r.Merge(context.Background(), cfg); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	cfg.SingleYear.Year = 1990
	logger := &fakeLogger{}
	r.Logger = logger
	res, err := r.ExtractYear(context.Background(), cfg)
	if err != nil {
		t.Fatalf("ExtractYear: %v", err)
	}
	if res.Warning == nil {
		t.Fatalf("expected warning")
	}
	if _, ok := logger.find("warning: year 1990 filter produced zero rows"); !ok {
		t.Fatalf("warning not logged: %v", logger.msgs)
	}
}

func TestZeroRunnerIsUsable(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	var r Runner
	res, err := r.Merge(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(res.RunID) != 36 {
		t.Fatalf("run id %q is not a uuid", res.RunID)
	}
}

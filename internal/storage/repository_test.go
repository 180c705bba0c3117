package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type fakeRepo struct{ closed int }

func (f *fakeRepo) Close()                                       { f.closed++ }
func (f *fakeRepo) EnsureTable(context.Context, TableSpec) error { return nil }
func (f *fakeRepo) ReplaceRows(context.Context, string, []string, [][]any) (int64, error) {
	return 0, nil
}

func TestRegisterAndNew(t *testing.T) {
	var gotDSN string
	Register("Fake-New", func(_ context.Context, cfg Config) (Repository, error) {
		gotDSN = cfg.DSN
		return &fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: " fake-new ", DSN: "mem"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := repo.(*fakeRepo); !ok || gotDSN != "mem" {
		t.Fatalf("repo=%T dsn=%q", repo, gotDSN)
	}

	found := false
	for _, k := range Kinds() {
		if k == "fake-new" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds()=%v missing fake-new", Kinds())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty kind")
	}
	_, err := New(context.Background(), Config{Kind: "nope"})
	if err == nil || !strings.Contains(err.Error(), "unsupported storage.kind=nope") {
		t.Fatalf("err=%v", err)
	}

	boom := errors.New("dial failed")
	Register("fake-fail", func(context.Context, Config) (Repository, error) { return nil, boom })
	if _, err := New(context.Background(), Config{Kind: "fake-fail"}); !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
}

func TestRegister_Panics(t *testing.T) {
	f := func(context.Context, Config) (Repository, error) { return &fakeRepo{}, nil }
	Register("fake-dup", f)

	tests := []struct {
		name string
		kind string
		f    Factory
	}{
		{name: "empty_kind", kind: "", f: f},
		{name: "nil_factory", kind: "fake-nil", f: nil},
		{name: "duplicate", kind: "FAKE-DUP", f: f},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("Register(%q) did not panic", tc.kind)
				}
			}()
			Register(tc.kind, tc.f)
		})
	}
}

func TestCountriesTable(t *testing.T) {
	t.Parallel()

	spec := CountriesTable("countries_health_wealth")
	if err := spec.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := []string{"country", "code", "year", "gdp", "life_expectancy"}
	if got := spec.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ColumnNames()=%v, want %v", got, want)
	}
}

func TestTableSpecValidate(t *testing.T) {
	t.Parallel()

	col := func(name, typ string) ColumnSpec { return ColumnSpec{Name: name, Type: typ} }
	tests := []struct {
		name string
		spec TableSpec
		want string
	}{
		{name: "empty_name", spec: TableSpec{Columns: []ColumnSpec{col("a", TypeText)}}, want: "table name is empty"},
		{name: "no_columns", spec: TableSpec{Name: "t"}, want: "no columns"},
		{name: "blank_column", spec: TableSpec{Name: "t", Columns: []ColumnSpec{col(" ", TypeText)}}, want: "column name is empty"},
		{name: "duplicate", spec: TableSpec{Name: "t", Columns: []ColumnSpec{col("a", TypeText), col("a", TypeDouble)}}, want: "duplicate column"},
		{name: "bad_type", spec: TableSpec{Name: "t", Columns: []ColumnSpec{col("a", "blob")}}, want: "unknown type"},
		{name: "bad_key", spec: TableSpec{Name: "t", Columns: []ColumnSpec{col("a", TypeText)}, PrimaryKey: []string{"b"}}, want: "primary key column"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.spec.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate()=%v, want %q", err, tt.want)
			}
		})
	}
}

func TestBatches(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 7)
	for i := range rows {
		rows[i] = []any{i, i}
	}

	tests := []struct {
		name      string
		maxParams int
		maxRows   int
		want      []int
	}{
		{name: "param_limit", maxParams: 6, want: []int{3, 3, 1}},
		{name: "row_limit", maxParams: 100, maxRows: 2, want: []int{2, 2, 2, 1}},
		{name: "no_limits", want: []int{7}},
		{name: "limit_below_one_row", maxParams: 1, want: []int{1, 1, 1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []int
			for _, b := range Batches(rows, 2, tt.maxParams, tt.maxRows) {
				got = append(got, len(b))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("batch sizes=%v, want %v", got, tt.want)
			}
		})
	}

	if Batches(nil, 2, 10, 0) != nil {
		t.Fatalf("Batches(nil) should be nil")
	}
}

func TestCheckRows(t *testing.T) {
	t.Parallel()

	err := CheckRows([]string{"a", "b"}, [][]any{{1, 2}, {3}})
	var rw *RowWidthError
	if !errors.As(err, &rw) || rw.Row != 1 || rw.Got != 1 || rw.Want != 2 {
		t.Fatalf("CheckRows()=%v", err)
	}
	if err := CheckRows([]string{"a"}, [][]any{{1}}); err != nil {
		t.Fatalf("CheckRows()=%v, want nil", err)
	}
}

package dataset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestCheck_Report(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("country,code,year,gdp,life_expectancy\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "C%d,C%02d,%d,1,2\n", i, i, 2021+i%2)
	}

	dir := t.TempDir()
	path := writeTemp(t, dir, "single.csv", b.String())

	rep, err := Check(context.Background(), path)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.Rows != 10 || !reflect.DeepEqual(rep.Years, []int{2021, 2022}) {
		t.Fatalf("report %+v", rep)
	}

	want := "Number of rows: 10\nUnique years: 2021, 2022\n"
	if rep.String() != want {
		t.Fatalf("String()=%q, want %q", rep.String(), want)
	}
}

func TestCheck_EmptyAndOddYears(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTemp(t, dir, "x.csv", "year,v\n2023,1\n,2\nabc,3\n2023,4\n")

	rep, err := Check(context.Background(), path)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	want := "Number of rows: 4\nUnique years: 2023, abc\nRows without year: 1\n"
	if rep.String() != want {
		t.Fatalf("String()=%q, want %q", rep.String(), want)
	}
}

func TestCheck_HeaderOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTemp(t, dir, "x.csv", "country,code,year,gdp,life_expectancy\n")

	rep, err := Check(context.Background(), path)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.String() != "Number of rows: 0\nUnique years: \n" {
		t.Fatalf("String()=%q", rep.String())
	}
}

func TestCheck_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Check(context.Background(), filepath.Join(dir, "absent.csv"))
	var mf *MissingFileError
	if !errors.As(err, &mf) {
		t.Fatalf("expected MissingFileError, got %v", err)
	}

	path := writeTemp(t, dir, "x.csv", "country,code\nChile,CHL\n")
	_, err = Check(context.Background(), path)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

package dataset

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	// Summed at run time; a constant 0.1 + 0.2 folds to exactly 0.3.
	a, b := 0.1, 0.2

	var buf bytes.Buffer
	err := WriteCSV(&buf, []MergedRecord{
		{Country: "United States", Code: "USA", Year: 2023, GDP: 70000, LifeExpectancy: 78.5},
		{Country: "Korea, Rep.", Code: "KOR", Year: 2023, GDP: a + b, LifeExpectancy: 83.7},
	})
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := "country,code,year,gdp,life_expectancy\n" +
		"United States,USA,2023,70000,78.5\n" +
		"\"Korea, Rep.\",KOR,2023,0.30000000000000004,83.7\n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

// TestWriteFile_Idempotent verifies identical content produces identical
// bytes and digest across runs.
func TestWriteFile_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "clean.csv")
	recs := []MergedRecord{{Country: "Chile", Code: "CHL", Year: 2023, GDP: 30000.25, LifeExpectancy: 81.2}}

	write := func(w io.Writer) error { return WriteCSV(w, recs) }

	d1, err := WriteFile(path, write)
	if err != nil {
		t.Fatalf("first WriteFile: %v", err)
	}
	first := readFile(t, path)

	d2, err := WriteFile(path, write)
	if err != nil {
		t.Fatalf("second WriteFile: %v", err)
	}
	if second := readFile(t, path); second != first || d1 != d2 {
		t.Fatalf("output not byte-identical across runs")
	}
	if len(d1) != 64 {
		t.Fatalf("digest %q is not hex sha256", d1)
	}
}

// TestWriteFile_FailureKeepsPrevious verifies a failed write neither
// truncates the existing artifact nor leaves temp files behind.
func TestWriteFile_FailureKeepsPrevious(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTemp(t, dir, "clean.csv", "previous\n")

	boom := errors.New("boom")
	_, err := WriteFile(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := readFile(t, path); got != "previous\n" {
		t.Fatalf("artifact changed to %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteFile_NoPartialFileOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "clean.csv")

	if _, err := WriteFile(path, func(io.Writer) error { return errors.New("fail") }); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("no artifact may exist after a failed first run, stat err=%v", err)
	}
}

package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTemp writes body to name inside dir and returns the full path.
func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func src(country, code string, year *int, value *float64) SourceRecord {
	return SourceRecord{Country: country, Code: code, Year: year, Value: value}
}

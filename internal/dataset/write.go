package dataset

import (
	"bufio"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteCSV writes the MergedColumns header followed by one line per record.
func WriteCSV(w io.Writer, recs []MergedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MergedColumns); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(r.Strings()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile replaces path with the bytes produced by write and returns their
// SHA-256 in hex.
//
// Output goes to a temporary file in the same directory that is renamed over
// path only after write succeeded and the data is synced, so a failed run
// leaves the previous artifact (or no file) rather than a truncated one.
func WriteFile(path string, write func(w io.Writer) error) (digest string, err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	bw := bufio.NewWriter(io.MultiWriter(tmp, h))
	if err = write(bw); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err = bw.Flush(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

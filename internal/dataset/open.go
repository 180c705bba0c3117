package dataset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// OpenInput opens path for reading as UTF-8 text.
//
// A UTF-8 BOM is stripped and UTF-16 files with a BOM (spreadsheet "Unicode
// text" exports) are transcoded; anything else is read as UTF-8 with invalid
// bytes replaced by U+FFFD. A path that does not exist yields
// *MissingFileError.
func OpenInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingFileError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return struct {
		io.Reader
		io.Closer
	}{transform.NewReader(f, dec), f}, nil
}

// normalizeName puts free-text names in Unicode NFC so the same country
// spelled with combining marks in one source and precomposed in the other
// compares and sorts equal.
func normalizeName(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

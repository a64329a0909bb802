package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/target/dms-export/internal/domain/model"
)

// utf8BOM lets spreadsheet tools detect the file encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FileSink writes one delimited file per run under a per-job subdirectory
// named after the dataset. Values containing the delimiter, a quote, or a
// newline are quote-escaped by the CSV encoder.
type FileSink struct {
	// Dir is the export root directory.
	Dir string
	// Delimiter separates values; defaults to ';'.
	Delimiter rune
	// Clock supplies the run timestamp embedded in the file name.
	Clock func() time.Time
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir string, delimiter rune) *FileSink {
	if delimiter == 0 {
		delimiter = ';'
	}
	return &FileSink{Dir: dir, Delimiter: delimiter, Clock: time.Now}
}

// Write serializes the dataset and returns the written file path.
func (s *FileSink) Write(_ context.Context, ds model.Dataset) (string, error) {
	dir := filepath.Join(s.Dir, ds.Name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	stamp := s.Clock().UTC().Format("20060102T150405")
	path := filepath.Join(dir, "export_"+stamp+".csv")

	file, err := os.Create(path) // #nosec G304 -- path is derived from sanitized job metadata
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}

	if err := s.writeContent(file, ds); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

func (s *FileSink) writeContent(file *os.File, ds model.Dataset) error {
	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("write byte-order marker: %w", err)
	}

	w := csv.NewWriter(file)
	w.Comma = s.Delimiter

	if err := w.Write(ds.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range ds.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush export file: %w", err)
	}
	return nil
}

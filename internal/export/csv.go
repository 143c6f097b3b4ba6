package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dwalters/scrapeflow/internal/records"
)

// CSVSink writes the ResultSet as UTF-8 CSV with a header row of the field
// names.
type CSVSink struct {
	path string
}

func NewCSV(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Name() string {
	return "csv"
}

func (s *CSVSink) Write(ctx context.Context, rs *records.ResultSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory for %s: %w", s.path, err)
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write(rs.Fields()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i := 0; i < rs.Len(); i++ {
		if err := w.Write(rs.Row(i)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", s.path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	return nil
}

package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/dwalters/scrapeflow/internal/records"
)

const maxColumnWidth = 60

// XLSXSink writes the ResultSet to a single spreadsheet sheet with a bold,
// filled header row and columns sized to their content.
type XLSXSink struct {
	path  string
	sheet string
}

func NewXLSX(path, sheet string) *XLSXSink {
	if sheet == "" {
		sheet = "records"
	}
	return &XLSXSink{path: path, sheet: sheet}
}

func (s *XLSXSink) Name() string {
	return "xlsx"
}

func (s *XLSXSink) Write(ctx context.Context, rs *records.ResultSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory for %s: %w", s.path, err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", s.sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	fields := rs.Fields()
	widths := make([]int, len(fields))

	for j, name := range fields {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell name: %w", err)
		}
		if err := f.SetCellValue(s.sheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header cell %s: %w", cell, err)
		}
		widths[j] = len(name)
	}

	if style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	}); err == nil {
		first, _ := excelize.CoordinatesToCellName(1, 1)
		last, _ := excelize.CoordinatesToCellName(len(fields), 1)
		f.SetCellStyle(s.sheet, first, last, style)
	}

	for i := 0; i < rs.Len(); i++ {
		for j, v := range rs.Row(i) {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("failed to build cell name: %w", err)
			}
			if err := f.SetCellValue(s.sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
			if len(v) > widths[j] {
				widths[j] = len(v)
			}
		}
	}

	for j := range fields {
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			continue
		}
		width := widths[j] + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		f.SetColWidth(s.sheet, col, col, float64(width))
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.path, err)
	}
	return nil
}

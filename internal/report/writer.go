package report

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/facturas/internal/invoice"
)

// SheetName is the worksheet holding the records
const SheetName = "Facturas"

const (
	filePrefix   = "Resultados_Facturas_"
	columnWidth  = 25
	flagColor    = "FF9999"
	amountFormat = 4 // built-in "#,##0.00"
	maxAttempts  = 10000
)

// Writer renders records into an xlsx report inside a directory
type Writer struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewWriter creates a Writer that names reports after the local date
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return NewWriterWithClock(dir, time.Now, logger)
}

// NewWriterWithClock creates a Writer with a custom clock for testing
func NewWriterWithClock(dir string, now func() time.Time, logger *slog.Logger) *Writer {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, now: now, logger: logger}
}

// Write builds the workbook and saves it under a name no existing report
// uses. It returns the path of the new file.
func (w *Writer) Write(records []invoice.Record) (string, error) {
	f, err := Build(records)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	out, path, err := w.create()
	if err != nil {
		return "", err
	}

	if err := f.Write(out); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing report: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing report: %w", err)
	}

	w.logger.Info("Report saved", "path", path, "rows", len(records))
	return path, nil
}

// create opens the first free report name for today, exclusively
func (w *Writer) create() (*os.File, string, error) {
	date := w.now().Format("2006-01-02")
	for counter := 0; counter < maxAttempts; counter++ {
		path := filepath.Join(w.dir, FileName(date, counter))
		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return out, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("creating report file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("no free report name for %s", date)
}

// FileName returns the report name for date; counter > 0 adds " (n)"
func FileName(date string, counter int) string {
	if counter == 0 {
		return filePrefix + date + ".xlsx"
	}
	return fmt.Sprintf("%s%s (%d).xlsx", filePrefix, date, counter)
}

// Build lays out the records on a single sheet
func Build(records []invoice.Record) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	flagged, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{flagColor}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating flag style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating amount style: %w", err)
	}

	for i, field := range invoice.Fields {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, string(field)); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for r, record := range records {
		row := r + 2
		for c, field := range invoice.Fields {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(SheetName, cell, record.Cell(field)); err != nil {
				f.Close()
				return nil, fmt.Errorf("writing %s: %w", cell, err)
			}

			switch {
			case record.Missing(field):
				err = f.SetCellStyle(SheetName, cell, cell, flagged)
			case field == invoice.FieldAmount:
				err = f.SetCellStyle(SheetName, cell, cell, amount)
			}
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("styling %s: %w", cell, err)
			}
		}
	}

	last, _ := excelize.ColumnNumberToName(len(invoice.Fields))
	if err := f.SetColWidth(SheetName, "A", last, columnWidth); err != nil {
		f.Close()
		return nil, fmt.Errorf("setting column width: %w", err)
	}

	return f, nil
}

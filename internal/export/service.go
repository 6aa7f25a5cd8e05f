package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/medtext/labguard/internal/report"
)

// Service produces XLSX bytes for batch results.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportBatchXLSX returns a workbook with one row per processed input:
// outcome, test count, confidence, rejection reason and elapsed time.
func (s *Service) ExportBatchXLSX(res report.BatchResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Batch Results"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet excelize creates
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Item",
		"Status",
		"Tests",
		"Confidence",
		"Reason",
		"Processing Time",
		"Summary",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for i, r := range res.Results {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, i+1)
		if r.OK() {
			write(2, r.Result.Status)
			write(3, len(r.Result.Tests))
			write(4, fmt.Sprintf("%.2f", r.Result.Confidence))
			write(5, "")
			write(6, r.Result.ProcessingTime)
			write(7, truncate(r.Result.Summary, 140))
		} else {
			write(2, r.Err.Status)
			write(3, 0)
			write(4, "")
			write(5, truncate(r.Err.Reason, 140))
			write(6, "")
			write(7, "")
		}
		row++
	}

	// Summary block under the table
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row+1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	write(1, "Batch status")
	write(2, res.Status)
	write(3, fmt.Sprintf("%d ok / %d failed", res.Successful, res.Failed))

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 14)
	_ = f.SetColWidth(sheet, "C", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 48)
	_ = f.SetColWidth(sheet, "F", "F", 16)
	_ = f.SetColWidth(sheet, "G", "G", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(res.Results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

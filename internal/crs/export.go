package crs

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var exportHeader = []string{"Sl No", "Particulars", "Estimate", "Committed", "Uncommitted", "Actual", "Anticipated", "Variance", "Variance %"}

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	line = strings.TrimRight(line, "\r\n") + "\r\n"
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// WriteCSV streams the report as CSV: metadata comment lines, a header, one
// line per row and a totals line. Null figures are written as empty cells.
func WriteCSV(w io.Writer, report Report) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeComment("# Report: Contract Review Sheet"); err != nil {
		return err
	}
	if err := streamer.writeComment("# Generated: " + report.GeneratedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := streamer.writeRow(exportHeader); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := streamer.writeRow([]string{
			row.SlNo,
			row.Particulars,
			formatAmount(row.Estimate),
			formatAmount(row.Committed),
			formatAmount(row.Uncommitted),
			formatAmount(row.Actual),
			formatAmount(row.Anticipated),
			formatAmount(row.Variance),
			formatAmount(row.VariancePercent),
		}); err != nil {
			return err
		}
	}
	sum := report.Summary
	if err := streamer.writeRow([]string{
		"",
		"TOTAL",
		formatDecimal(sum.TotalEstimate),
		formatDecimal(sum.TotalCommitted),
		"",
		formatDecimal(sum.TotalActual),
		"",
		formatDecimal(sum.TotalVariance),
		formatDecimal(sum.VariancePercent),
	}); err != nil {
		return err
	}
	return streamer.Flush()
}

// WriteXLSX renders the report as a single-sheet workbook.
func WriteXLSX(report Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "CRS"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("crs: set sheet name: %w", err)
	}
	widths := []float64{8, 28, 14, 14, 14, 14, 14, 14, 12}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return nil, fmt.Errorf("crs: set col width %s: %w", col, err)
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, fmt.Errorf("crs: title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("crs: header style: %w", err)
	}
	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("crs: number style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("crs: total style: %w", err)
	}

	if err := f.SetCellValue(sheet, "A1", "Contract Review Sheet"); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", titleStyle); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, "A2", "Generated "+report.GeneratedAt.UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A4", &exportHeader); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A4", "I4", headerStyle); err != nil {
		return nil, err
	}

	rowIdx := 5
	for _, row := range report.Rows {
		values := []any{row.SlNo, row.Particulars, cellValue(row.Estimate), cellValue(row.Committed), cellValue(row.Uncommitted),
			cellValue(row.Actual), cellValue(row.Anticipated), cellValue(row.Variance), cellValue(row.VariancePercent)}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowIdx), &values); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("C%d", rowIdx), fmt.Sprintf("I%d", rowIdx), numberStyle); err != nil {
			return nil, err
		}
		rowIdx++
	}

	sum := report.Summary
	totals := []any{"", "TOTAL", round2(sum.TotalEstimate), round2(sum.TotalCommitted), nil, round2(sum.TotalActual), nil,
		round2(sum.TotalVariance), round2(sum.VariancePercent)}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowIdx), &totals); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", rowIdx), fmt.Sprintf("I%d", rowIdx), totalStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("crs: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return formatDecimal(*v)
}

func formatDecimal(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func cellValue(v *float64) any {
	if v == nil {
		return nil
	}
	return round2(*v)
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

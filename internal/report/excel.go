package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetCurrent = "Current PODs"
	SheetFuture  = "Future PODs"
)

// ExcelContentType is the MIME type of exported workbooks.
const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filename returns the export file name for a report generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("pod_report_%s.xlsx", t.Format("20060102_150405"))
}

// WriteWorkbook writes an xlsx workbook with the current and future matrices to w.
func WriteWorkbook(w io.Writer, current, future *Matrix) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetCurrent); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetFuture); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeMatrix(f, SheetCurrent, current, "No current POD data available", bold); err != nil {
		return err
	}
	if err := writeMatrix(f, SheetFuture, future, "No future POD data available", bold); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeMatrix(f *excelize.File, sheet string, m *Matrix, emptyMessage string, headerStyle int) error {
	if m.Empty() {
		if err := f.SetSheetRow(sheet, "A1", &[]any{"Message"}); err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, "A2", &[]any{emptyMessage}); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, "A1", "A1", headerStyle)
	}

	header := make([]any, 0, len(m.Columns)+1)
	header = append(header, ColProductName)
	for _, c := range m.Columns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}

	for i, p := range m.Rows {
		row := make([]any, 0, len(m.Columns)+1)
		row = append(row, p)
		for _, c := range m.Columns {
			row = append(row, m.Value(p, c))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(m.Columns)+1, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	lastRow, err := excelize.CoordinatesToCellName(1, len(m.Rows)+1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A2", lastRow, headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "A", 40)
}

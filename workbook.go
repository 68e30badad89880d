package forcelog

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"
)

const WorkbookSheet = "Statistics"

var workbookHeader = []string{
	"Table", "Head", "Target", "Count", "Mean", "Max", "Min", "Range", "3σ", "Lower_Limit", "Upper_Limit",
}

// WriteWorkbook writes statistics as an xlsx workbook. Max and Min cells
// outside the tolerance band are set in bold red.
func WriteWorkbook(out io.Writer, statistics []GroupStatistics, precision int) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", WorkbookSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	outOfTolerance, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FF0000"},
	})
	if err != nil {
		return fmt.Errorf("new style: %w", err)
	}

	for col, name := range workbookHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(WorkbookSheet, cell, name); err != nil {
			return fmt.Errorf("set header %s: %w", cell, err)
		}
	}

	for i, s := range statistics {
		rowIdx := i + 2
		values := []interface{}{
			s.Table,
			s.Head,
			s.Target,
			s.Count,
			cellValue(s.Mean, precision),
			cellValue(s.Max, precision),
			cellValue(s.Min, precision),
			cellValue(s.Range, precision),
			cellValue(s.ThreeSigma, precision),
			nil,
			nil,
		}
		if s.Limits.Defined {
			values[9] = Round(s.Limits.Lower, precision)
			values[10] = Round(s.Limits.Upper, precision)
		}

		for col, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err := f.SetCellValue(WorkbookSheet, cell, v); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}

		if s.MaxOutOfTolerance() {
			cell, _ := excelize.CoordinatesToCellName(6, rowIdx)
			if err := f.SetCellStyle(WorkbookSheet, cell, cell, outOfTolerance); err != nil {
				return fmt.Errorf("style cell %s: %w", cell, err)
			}
		}
		if s.MinOutOfTolerance() {
			cell, _ := excelize.CoordinatesToCellName(7, rowIdx)
			if err := f.SetCellStyle(WorkbookSheet, cell, cell, outOfTolerance); err != nil {
				return fmt.Errorf("style cell %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	return nil
}

func cellValue(v float64, precision int) interface{} {
	if math.IsNaN(v) {
		return NotComputable
	}
	return Round(v, precision)
}

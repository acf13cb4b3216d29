package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RenderXLSX builds a workbook: one summary sheet with the KPIs, then one
// sheet per table with a styled header row.
func RenderXLSX(report Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"00467F"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	summary := "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	_ = f.SetCellValue(summary, "A1", report.Title)
	_ = f.SetCellValue(summary, "A2", report.Company)
	_ = f.SetCellValue(summary, "A3", report.GeneratedAt.Format("2006-01-02 15:04"))
	for i, kpi := range report.KPIs {
		rowIdx := i + 5
		_ = f.SetCellValue(summary, fmt.Sprintf("A%d", rowIdx), kpi.Label)
		_ = f.SetCellValue(summary, fmt.Sprintf("B%d", rowIdx), kpi.Value)
	}

	for _, table := range report.Tables {
		sheet := table.Title
		if sheet == "" {
			sheet = "Data"
		}
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		for i, col := range table.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			_ = f.SetCellValue(sheet, cell, col.Label)
			_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
		}
		for r, row := range table.Rows {
			for c, col := range table.Columns {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				_ = f.SetCellValue(sheet, cell, FormatCell(col.Format, row[col.Key]))
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

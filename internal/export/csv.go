package export

import (
	"encoding/csv"
	"io"
)

// RenderCSV serialises the report. KPIs come first as metric/value pairs,
// then each table with its header row.
func RenderCSV(w io.Writer, report Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{report.Title, report.GeneratedAt.Format("2006-01-02 15:04")}); err != nil {
		return err
	}

	if len(report.KPIs) > 0 {
		if err := writer.Write([]string{"Metric", "Value"}); err != nil {
			return err
		}
		for _, kpi := range report.KPIs {
			if err := writer.Write([]string{kpi.Label, kpi.Value}); err != nil {
				return err
			}
		}
	}

	for _, table := range report.Tables {
		if err := writer.Write(nil); err != nil {
			return err
		}
		if table.Title != "" {
			if err := writer.Write([]string{table.Title}); err != nil {
				return err
			}
		}
		header := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			header[i] = col.Label
		}
		if err := writer.Write(header); err != nil {
			return err
		}
		for _, row := range table.Rows {
			record := make([]string, len(table.Columns))
			for i, col := range table.Columns {
				record[i] = FormatCell(col.Format, row[col.Key])
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

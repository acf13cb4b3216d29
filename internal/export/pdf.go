package export

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	pdfPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	pdfGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// RenderPDF lays the report out on A4: title block, KPI rows, then each
// table with a tinted header.
func RenderPDF(report Report) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(report.Title, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(row.New(14).Add(
		col.New(8).Add(
			text.New(report.Title, props.Text{Style: fontstyle.Bold, Size: 14, Color: pdfPrimary, Top: 1}),
			text.New(report.Company, props.Text{Size: 9, Top: 9, Color: pdfGray}),
		),
		col.New(4).Add(
			text.New(report.GeneratedAt.Format("2006-01-02 15:04"), props.Text{Size: 9, Align: align.Right, Top: 1, Color: pdfGray}),
		),
	))
	m.AddRows(line.NewRow(1, props.Line{Color: pdfPrimary, Thickness: 0.5}))

	if len(report.KPIs) > 0 {
		for _, kpi := range report.KPIs {
			m.AddRows(row.New(6).Add(
				col.New(6).Add(text.New(kpi.Label, props.Text{Size: 9})),
				col.New(6).Add(text.New(kpi.Value, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right})),
			))
		}
		m.AddRows(line.NewRow(1, props.Line{Color: pdfGray, Thickness: 0.3}))
	}

	for _, table := range report.Tables {
		if table.Title != "" {
			m.AddRows(row.New(9).Add(
				col.New(12).Add(text.New(table.Title, props.Text{Style: fontstyle.Bold, Size: 11, Color: pdfPrimary, Top: 2})),
			))
		}
		m.AddRows(tableHeaderRow(table))
		for _, data := range table.Rows {
			m.AddRows(tableDataRow(table, data))
		}
		m.AddRows(line.NewRow(2))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("export: generate pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func tableHeaderRow(table Table) core.Row {
	width := columnWidth(len(table.Columns))
	cols := make([]core.Col, 0, len(table.Columns))
	for _, c := range table.Columns {
		cols = append(cols, col.New(width).Add(
			text.New(c.Label, props.Text{Style: fontstyle.Bold, Size: 8, Color: pdfPrimary}),
		))
	}
	return row.New(6).Add(cols...)
}

func tableDataRow(table Table, data map[string]any) core.Row {
	width := columnWidth(len(table.Columns))
	cols := make([]core.Col, 0, len(table.Columns))
	for _, c := range table.Columns {
		cols = append(cols, col.New(width).Add(
			text.New(FormatCell(c.Format, data[c.Key]), props.Text{Size: 8}),
		))
	}
	return row.New(5).Add(cols...)
}

// columnWidth spreads up to 12 grid units across the columns.
func columnWidth(count int) int {
	if count <= 0 {
		return 12
	}
	width := 12 / count
	if width < 1 {
		width = 1
	}
	return width
}

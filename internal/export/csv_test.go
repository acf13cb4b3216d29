package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Title:       "Inventory Report",
		Company:     "ACME",
		GeneratedAt: time.Date(2026, 4, 1, 10, 30, 0, 0, time.UTC),
		KPIs: []KPI{
			{Label: "Inventory value", Value: "1500.00"},
			{Label: "Products", Value: "2"},
		},
		Tables: []Table{{
			Title: "Products",
			Columns: []Column{
				{Key: "sku", Label: "SKU", Format: FormatText},
				{Key: "stock", Label: "Stock", Format: FormatNumber},
				{Key: "price", Label: "Price", Format: FormatMoney},
			},
			Rows: []map[string]any{
				{"sku": "W-001", "stock": 20.0, "price": 1000.0},
				{"sku": "W-002", "stock": 2.5, "price": 250.0},
			},
		}},
	}
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCSV(&buf, sampleReport()))

	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	require.Equal(t, []string{"Inventory Report", "2026-04-01 10:30"}, records[0])
	require.Equal(t, []string{"Metric", "Value"}, records[1])
	require.Equal(t, []string{"Inventory value", "1500.00"}, records[2])

	var headerIdx int
	for i, rec := range records {
		if len(rec) == 3 && rec[0] == "SKU" {
			headerIdx = i
			break
		}
	}
	require.Positive(t, headerIdx, "table header row missing")
	require.Equal(t, []string{"W-001", "20", "1000.00"}, records[headerIdx+1])
	require.Equal(t, []string{"W-002", "2.50", "250.00"}, records[headerIdx+2])
}

func TestFormatCell(t *testing.T) {
	require.Equal(t, "1234.50", FormatCell(FormatMoney, 1234.5))
	require.Equal(t, "42", FormatCell(FormatNumber, 42.0))
	require.Equal(t, "42.25", FormatCell(FormatNumber, 42.25))
	require.Equal(t, "2026-04-01", FormatCell(FormatDate, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "plain", FormatCell(FormatText, "plain"))
	require.Equal(t, "", FormatCell(FormatText, nil))
}

func TestRenderXLSXProducesWorkbook(t *testing.T) {
	data, err := RenderXLSX(sampleReport())
	require.NoError(t, err)
	// XLSX containers start with the zip magic.
	require.True(t, bytes.HasPrefix(data, []byte("PK")), "expected a zip container")
	require.Greater(t, len(data), 1000)
}

func TestRenderPDFProducesDocument(t *testing.T) {
	data, err := RenderPDF(sampleReport())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "%PDF"), "expected a PDF header")
}

// Package export renders business reports. One declarative Report model is
// built per endpoint and handed to a renderer per output format.
package export

import (
	"fmt"
	"time"
)

// Format choices for a column's cell values.
const (
	FormatText   = ""
	FormatNumber = "number"
	FormatMoney  = "money"
	FormatDate   = "date"
)

// Column declares one report column.
type Column struct {
	Key    string
	Label  string
	Format string
}

// Table is one titled data section.
type Table struct {
	Title   string
	Columns []Column
	Rows    []map[string]any
}

// KPI is one headline figure.
type KPI struct {
	Label string
	Value string
}

// Report is the renderer-independent document model.
type Report struct {
	Title       string
	Company     string
	GeneratedAt time.Time
	KPIs        []KPI
	Tables      []Table
}

// FormatCell renders a raw value per the column format.
func FormatCell(format string, value any) string {
	if value == nil {
		return ""
	}
	switch format {
	case FormatMoney:
		if f, ok := toFloat(value); ok {
			return fmt.Sprintf("%.2f", f)
		}
	case FormatNumber:
		if f, ok := toFloat(value); ok {
			if f == float64(int64(f)) {
				return fmt.Sprintf("%d", int64(f))
			}
			return fmt.Sprintf("%.2f", f)
		}
	case FormatDate:
		if t, ok := value.(time.Time); ok {
			return t.Format("2006-01-02")
		}
	}
	return fmt.Sprintf("%v", value)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

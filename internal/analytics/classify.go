package analytics

import (
	"fmt"
	"sort"

	"github.com/meridian-bi/meridian/internal/catalog"
)

const (
	abcCutoffA = 0.80
	abcCutoffB = 0.95
)

// ClassifyABC ranks items by consumption value and assigns classes by
// cumulative share: A up to 80%, B up to 95%, C the rest. Every item gets
// exactly one class.
func ClassifyABC(items []ConsumptionItem) []ABCAssignment {
	out := make([]ABCAssignment, 0, len(items))
	sorted := make([]ConsumptionItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	var total float64
	for _, item := range sorted {
		if item.Value > 0 {
			total += item.Value
		}
	}

	var cumulative float64
	for _, item := range sorted {
		assignment := ABCAssignment{
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Name:      item.Name,
			Value:     item.Value,
		}
		if total <= 0 {
			// No consumption anywhere: everything is C.
			assignment.Class = "C"
			out = append(out, assignment)
			continue
		}
		if item.Value > 0 {
			cumulative += item.Value
		}
		assignment.CumulativeShare = cumulative / total
		switch {
		case assignment.CumulativeShare <= abcCutoffA:
			assignment.Class = "A"
		case assignment.CumulativeShare <= abcCutoffB:
			assignment.Class = "B"
		default:
			assignment.Class = "C"
		}
		out = append(out, assignment)
	}
	return out
}

// GenerateAlerts inspects stock levels against thresholds. A product with no
// stock raises exactly one out_of_stock alert and never a low_stock one.
func GenerateAlerts(products []catalog.Product) []Alert {
	var alerts []Alert
	for _, p := range products {
		if !p.IsActive {
			continue
		}
		switch {
		case p.Stock <= 0:
			alerts = append(alerts, Alert{
				Type:      AlertOutOfStock,
				Severity:  SeverityCritical,
				ProductID: p.ID,
				SKU:       p.SKU,
				Product:   p.Name,
				Stock:     p.Stock,
				Threshold: 0,
				Message:   fmt.Sprintf("%s is out of stock", p.Name),
			})
		case p.MinStock > 0 && p.Stock <= p.MinStock:
			alerts = append(alerts, Alert{
				Type:      AlertLowStock,
				Severity:  SeverityWarning,
				ProductID: p.ID,
				SKU:       p.SKU,
				Product:   p.Name,
				Stock:     p.Stock,
				Threshold: p.MinStock,
				Message:   fmt.Sprintf("%s is below its minimum stock of %.0f", p.Name, p.MinStock),
			})
		}

		if p.MaxStock > 0 && p.Stock > p.MaxStock {
			alerts = append(alerts, Alert{
				Type:      AlertExcess,
				Severity:  SeverityInfo,
				ProductID: p.ID,
				SKU:       p.SKU,
				Product:   p.Name,
				Stock:     p.Stock,
				Threshold: p.MaxStock,
				Message:   fmt.Sprintf("%s exceeds its maximum stock of %.0f", p.Name, p.MaxStock),
			})
		}
		if p.ReorderPoint > 0 && p.Stock > p.MinStock && p.Stock <= p.ReorderPoint {
			alerts = append(alerts, Alert{
				Type:      AlertReorder,
				Severity:  SeverityInfo,
				ProductID: p.ID,
				SKU:       p.SKU,
				Product:   p.Name,
				Stock:     p.Stock,
				Threshold: p.ReorderPoint,
				Message:   fmt.Sprintf("%s reached its reorder point of %.0f", p.Name, p.ReorderPoint),
			})
		}
	}
	return alerts
}

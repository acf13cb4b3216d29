package analytics

import "time"

// KPISummary contains the indicators surfaced on the dashboard.
type KPISummary struct {
	InventoryValue     float64 `json:"inventory_value"`
	InventoryUnits     float64 `json:"inventory_units"`
	ProductCount       int     `json:"product_count"`
	Revenue            float64 `json:"revenue"`
	SaleCount          int     `json:"sale_count"`
	COGS               float64 `json:"cogs"`
	GrossMargin        float64 `json:"gross_margin"`
	AvgTicket          float64 `json:"avg_ticket"`
	Outstanding        float64 `json:"outstanding_receivables"`
	InventoryTurnover  float64 `json:"inventory_turnover"`
	OutOfStockProducts int     `json:"out_of_stock_products"`
	LowStockProducts   int     `json:"low_stock_products"`
}

// TrendPoint is one month of revenue history.
type TrendPoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Count   int     `json:"count"`
}

// ConsumptionItem carries a product's annual consumption value for ranking.
type ConsumptionItem struct {
	ProductID int64   `json:"product_id"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
}

// ABCAssignment is the class computed for one product.
type ABCAssignment struct {
	ProductID       int64   `json:"product_id"`
	SKU             string  `json:"sku"`
	Name            string  `json:"name"`
	Value           float64 `json:"value"`
	CumulativeShare float64 `json:"cumulative_share"`
	Class           string  `json:"class"`
}

// AlertType categorises inventory alerts.
type AlertType string

const (
	AlertOutOfStock AlertType = "out_of_stock"
	AlertLowStock   AlertType = "low_stock"
	AlertExcess     AlertType = "excess_stock"
	AlertReorder    AlertType = "reorder"
)

// Severity grades an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Alert flags a product needing attention.
type Alert struct {
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	ProductID int64     `json:"product_id"`
	SKU       string    `json:"sku"`
	Product   string    `json:"product"`
	Stock     float64   `json:"stock"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
}

// EntityStats summarises one entity for the data statistics endpoint.
type EntityStats struct {
	Count    int        `json:"count"`
	Earliest *time.Time `json:"earliest,omitempty"`
	Latest   *time.Time `json:"latest,omitempty"`
}

// DataStatistics reports row counts and date coverage per entity.
type DataStatistics struct {
	Products    EntityStats `json:"products"`
	Customers   EntityStats `json:"customers"`
	Sales       EntityStats `json:"sales"`
	Receivables EntityStats `json:"receivables"`
}

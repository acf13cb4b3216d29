package export

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-bi/meridian/internal/analytics"
	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/receivables"
	"github.com/meridian-bi/meridian/internal/sales"
	"github.com/meridian-bi/meridian/internal/shared"
	"github.com/meridian-bi/meridian/internal/tenancy"
)

// CatalogSource supplies products for the inventory report.
type CatalogSource interface {
	ListAll(ctx context.Context, companyID int64) ([]catalog.Product, error)
}

// SalesSource supplies sales for the sales report.
type SalesSource interface {
	ListSales(ctx context.Context, filter sales.ListFilter) ([]sales.Sale, int, error)
	Summarize(ctx context.Context, companyID int64, from, to time.Time) (sales.Summary, error)
}

// ReceivablesSource supplies open balances for the collections report.
type ReceivablesSource interface {
	ListOutstanding(ctx context.Context, companyID int64) ([]receivables.Receivable, error)
}

// AnalyticsSource supplies KPIs and alerts for the dashboard report.
type AnalyticsSource interface {
	Summary(ctx context.Context, actor *shared.Identity, from, to time.Time) (analytics.KPISummary, error)
	Alerts(ctx context.Context, companyID int64) ([]analytics.Alert, error)
}

// CompanySource resolves the tenant name printed on reports.
type CompanySource interface {
	GetCompany(ctx context.Context, id int64) (*tenancy.Company, error)
}

// Service builds report documents.
type Service struct {
	catalog     CatalogSource
	sales       SalesSource
	receivables ReceivablesSource
	analytics   AnalyticsSource
	companies   CompanySource
}

// NewService builds Service instance.
func NewService(catalogSrc CatalogSource, salesSrc SalesSource, receivablesSrc ReceivablesSource, analyticsSrc AnalyticsSource, companies CompanySource) *Service {
	return &Service{
		catalog:     catalogSrc,
		sales:       salesSrc,
		receivables: receivablesSrc,
		analytics:   analyticsSrc,
		companies:   companies,
	}
}

func (s *Service) companyName(ctx context.Context, companyID int64) string {
	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return ""
	}
	return company.Name
}

// InventoryReport lists the catalog with stock values.
func (s *Service) InventoryReport(ctx context.Context, actor *shared.Identity) (Report, error) {
	products, err := s.catalog.ListAll(ctx, actor.CompanyID)
	if err != nil {
		return Report{}, err
	}

	var totalValue, totalUnits float64
	rows := make([]map[string]any, 0, len(products))
	for _, p := range products {
		totalValue += p.Stock * p.Cost
		totalUnits += p.Stock
		rows = append(rows, map[string]any{
			"sku":       p.SKU,
			"name":      p.Name,
			"category":  p.Category,
			"stock":     p.Stock,
			"min_stock": p.MinStock,
			"price":     p.Price,
			"cost":      p.Cost,
			"value":     p.Stock * p.Cost,
			"abc":       string(p.ABCClass),
		})
	}

	return Report{
		Title:       "Inventory Report",
		Company:     s.companyName(ctx, actor.CompanyID),
		GeneratedAt: time.Now(),
		KPIs: []KPI{
			{Label: "Products", Value: fmt.Sprintf("%d", len(products))},
			{Label: "Total units", Value: fmt.Sprintf("%.0f", totalUnits)},
			{Label: "Stock value at cost", Value: fmt.Sprintf("%.2f", totalValue)},
		},
		Tables: []Table{{
			Title: "Products",
			Columns: []Column{
				{Key: "sku", Label: "SKU"},
				{Key: "name", Label: "Name"},
				{Key: "category", Label: "Category"},
				{Key: "stock", Label: "Stock", Format: FormatNumber},
				{Key: "min_stock", Label: "Min", Format: FormatNumber},
				{Key: "price", Label: "Price", Format: FormatMoney},
				{Key: "cost", Label: "Cost", Format: FormatMoney},
				{Key: "value", Label: "Value", Format: FormatMoney},
				{Key: "abc", Label: "ABC"},
			},
			Rows: rows,
		}},
	}, nil
}

// SalesReport lists sales over the period with a revenue summary.
func (s *Service) SalesReport(ctx context.Context, actor *shared.Identity, from, to time.Time) (Report, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	summary, err := s.sales.Summarize(ctx, actor.CompanyID, from, to)
	if err != nil {
		return Report{}, err
	}
	list, _, err := s.sales.ListSales(ctx, sales.ListFilter{
		CompanyID: actor.CompanyID,
		From:      from,
		To:        to,
		PerPage:   10000,
	})
	if err != nil {
		return Report{}, err
	}

	rows := make([]map[string]any, 0, len(list))
	for _, sale := range list {
		rows = append(rows, map[string]any{
			"invoice":  sale.InvoiceNumber,
			"customer": sale.CustomerName,
			"date":     sale.SoldAt,
			"subtotal": sale.Subtotal,
			"tax":      sale.TaxAmount,
			"total":    sale.Total,
			"status":   string(sale.PaymentStatus),
		})
	}

	return Report{
		Title:       "Sales Report",
		Company:     s.companyName(ctx, actor.CompanyID),
		GeneratedAt: time.Now(),
		KPIs: []KPI{
			{Label: "Period", Value: from.Format("2006-01-02") + " to " + to.Format("2006-01-02")},
			{Label: "Sales", Value: fmt.Sprintf("%d", summary.Count)},
			{Label: "Revenue", Value: fmt.Sprintf("%.2f", summary.Revenue)},
			{Label: "Tax collected", Value: fmt.Sprintf("%.2f", summary.TaxCollected)},
			{Label: "Average ticket", Value: fmt.Sprintf("%.2f", summary.AvgTicket)},
		},
		Tables: []Table{{
			Title: "Sales",
			Columns: []Column{
				{Key: "invoice", Label: "Invoice"},
				{Key: "customer", Label: "Customer"},
				{Key: "date", Label: "Date", Format: FormatDate},
				{Key: "subtotal", Label: "Subtotal", Format: FormatMoney},
				{Key: "tax", Label: "Tax", Format: FormatMoney},
				{Key: "total", Label: "Total", Format: FormatMoney},
				{Key: "status", Label: "Status"},
			},
			Rows: rows,
		}},
	}, nil
}

// CollectionsReport lists open receivables with aging context.
func (s *Service) CollectionsReport(ctx context.Context, actor *shared.Identity) (Report, error) {
	outstanding, err := s.receivables.ListOutstanding(ctx, actor.CompanyID)
	if err != nil {
		return Report{}, err
	}

	now := time.Now()
	var total float64
	rows := make([]map[string]any, 0, len(outstanding))
	for _, rec := range outstanding {
		balance := rec.Outstanding()
		total += balance
		daysPast := int(now.Sub(rec.DueAt).Hours() / 24)
		if daysPast < 0 {
			daysPast = 0
		}
		rows = append(rows, map[string]any{
			"invoice":   rec.InvoiceNumber,
			"customer":  rec.CustomerName,
			"amount":    rec.Amount,
			"paid":      rec.PaidAmount,
			"balance":   balance,
			"due":       rec.DueAt,
			"days_past": daysPast,
			"status":    string(rec.Status),
		})
	}

	return Report{
		Title:       "Collections Report",
		Company:     s.companyName(ctx, actor.CompanyID),
		GeneratedAt: now,
		KPIs: []KPI{
			{Label: "Open receivables", Value: fmt.Sprintf("%d", len(outstanding))},
			{Label: "Outstanding balance", Value: fmt.Sprintf("%.2f", total)},
		},
		Tables: []Table{{
			Title: "Receivables",
			Columns: []Column{
				{Key: "invoice", Label: "Invoice"},
				{Key: "customer", Label: "Customer"},
				{Key: "amount", Label: "Amount", Format: FormatMoney},
				{Key: "paid", Label: "Paid", Format: FormatMoney},
				{Key: "balance", Label: "Balance", Format: FormatMoney},
				{Key: "due", Label: "Due", Format: FormatDate},
				{Key: "days_past", Label: "Days Past", Format: FormatNumber},
				{Key: "status", Label: "Status"},
			},
			Rows: rows,
		}},
	}, nil
}

// DashboardReport combines the KPI summary with the current alert set.
func (s *Service) DashboardReport(ctx context.Context, actor *shared.Identity) (Report, error) {
	summary, err := s.analytics.Summary(ctx, actor, time.Time{}, time.Time{})
	if err != nil {
		return Report{}, err
	}
	alerts, err := s.analytics.Alerts(ctx, actor.CompanyID)
	if err != nil {
		return Report{}, err
	}

	rows := make([]map[string]any, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, map[string]any{
			"type":      string(a.Type),
			"severity":  string(a.Severity),
			"sku":       a.SKU,
			"product":   a.Product,
			"stock":     a.Stock,
			"threshold": a.Threshold,
		})
	}

	return Report{
		Title:       "Executive Dashboard",
		Company:     s.companyName(ctx, actor.CompanyID),
		GeneratedAt: time.Now(),
		KPIs: []KPI{
			{Label: "Inventory value", Value: fmt.Sprintf("%.2f", summary.InventoryValue)},
			{Label: "Revenue (30d)", Value: fmt.Sprintf("%.2f", summary.Revenue)},
			{Label: "Gross margin (30d)", Value: fmt.Sprintf("%.2f", summary.GrossMargin)},
			{Label: "Outstanding receivables", Value: fmt.Sprintf("%.2f", summary.Outstanding)},
			{Label: "Inventory turnover", Value: fmt.Sprintf("%.2f", summary.InventoryTurnover)},
			{Label: "Out of stock products", Value: fmt.Sprintf("%d", summary.OutOfStockProducts)},
		},
		Tables: []Table{{
			Title: "Alerts",
			Columns: []Column{
				{Key: "type", Label: "Type"},
				{Key: "severity", Label: "Severity"},
				{Key: "sku", Label: "SKU"},
				{Key: "product", Label: "Product"},
				{Key: "stock", Label: "Stock", Format: FormatNumber},
				{Key: "threshold", Label: "Threshold", Format: FormatNumber},
			},
			Rows: rows,
		}},
	}, nil
}

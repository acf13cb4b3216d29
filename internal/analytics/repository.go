package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs aggregation queries for analytics.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InventoryTotals returns stock value at cost, total units and product counts.
func (r *Repository) InventoryTotals(ctx context.Context, companyID int64) (value, units float64, productCount, outOfStock, lowStock int, err error) {
	err = r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(stock * cost), 0),
COALESCE(SUM(stock), 0),
COUNT(*),
COUNT(*) FILTER (WHERE stock <= 0),
COUNT(*) FILTER (WHERE stock > 0 AND min_stock > 0 AND stock <= min_stock)
FROM products WHERE company_id = $1 AND is_active`, companyID).
		Scan(&value, &units, &productCount, &outOfStock, &lowStock)
	return
}

// SalesStats aggregates revenue and cost of goods sold over a period.
func (r *Repository) SalesStats(ctx context.Context, companyID int64, from, to time.Time) (revenue, cogs float64, count int, err error) {
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(s.total), 0), COUNT(*)
FROM sales s WHERE s.company_id = $1 AND s.sold_at >= $2 AND s.sold_at < $3`,
		companyID, from, to).Scan(&revenue, &count)
	if err != nil {
		return
	}
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(si.qty * p.cost), 0)
FROM sale_items si
JOIN sales s ON s.id = si.sale_id
JOIN products p ON p.id = si.product_id
WHERE s.company_id = $1 AND s.sold_at >= $2 AND s.sold_at < $3`,
		companyID, from, to).Scan(&cogs)
	return
}

// OutstandingReceivables sums unpaid balances.
func (r *Repository) OutstandingReceivables(ctx context.Context, companyID int64) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount - paid_amount), 0)
FROM receivables WHERE company_id = $1 AND status <> 'paid'`, companyID).Scan(&total)
	return total, err
}

// MonthlyRevenue returns per-month revenue for the trailing N months.
func (r *Repository) MonthlyRevenue(ctx context.Context, companyID int64, months int) ([]TrendPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT to_char(date_trunc('month', sold_at), 'YYYY-MM') AS month,
COALESCE(SUM(total), 0), COUNT(*)
FROM sales
WHERE company_id = $1 AND sold_at >= date_trunc('month', NOW()) - ($2 || ' months')::interval
GROUP BY 1 ORDER BY 1`, companyID, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Month, &p.Revenue, &p.Count); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AnnualConsumption returns per-product sales value over the trailing year.
// Products with no sales fall back to their stock value so new catalogs still
// rank meaningfully.
func (r *Repository) AnnualConsumption(ctx context.Context, companyID int64) ([]ConsumptionItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.name,
COALESCE(sold.value, p.stock * p.price) AS value
FROM products p
LEFT JOIN (
	SELECT si.product_id, SUM(si.line_total) AS value
	FROM sale_items si
	JOIN sales s ON s.id = si.sale_id
	WHERE s.company_id = $1 AND s.sold_at >= NOW() - INTERVAL '365 days'
	GROUP BY si.product_id
) sold ON sold.product_id = p.id
WHERE p.company_id = $1 AND p.is_active`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConsumptionItem
	for rows.Next() {
		var item ConsumptionItem
		if err := rows.Scan(&item.ProductID, &item.SKU, &item.Name, &item.Value); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Statistics reports counts and date coverage per entity.
func (r *Repository) Statistics(ctx context.Context, companyID int64) (DataStatistics, error) {
	var stats DataStatistics
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM products WHERE company_id = $1`, companyID).
		Scan(&stats.Products.Count, &stats.Products.Earliest, &stats.Products.Latest); err != nil {
		return stats, err
	}
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM customers WHERE company_id = $1`, companyID).
		Scan(&stats.Customers.Count, &stats.Customers.Earliest, &stats.Customers.Latest); err != nil {
		return stats, err
	}
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*), MIN(sold_at), MAX(sold_at) FROM sales WHERE company_id = $1`, companyID).
		Scan(&stats.Sales.Count, &stats.Sales.Earliest, &stats.Sales.Latest); err != nil {
		return stats, err
	}
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*), MIN(due_at), MAX(due_at) FROM receivables WHERE company_id = $1`, companyID).
		Scan(&stats.Receivables.Count, &stats.Receivables.Earliest, &stats.Receivables.Latest); err != nil {
		return stats, err
	}
	return stats, nil
}

// ReplaceAlertSnapshot stores the current alert set for a company, replacing
// the previous scan.
func (r *Repository) ReplaceAlertSnapshot(ctx context.Context, companyID int64, alerts []Alert) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM inventory_alerts WHERE company_id = $1`, companyID); err != nil {
		return err
	}
	for _, a := range alerts {
		if _, err := r.pool.Exec(ctx, `INSERT INTO inventory_alerts (company_id, alert_type, severity, product_id, sku, product_name, stock, threshold, message, scanned_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
			companyID, a.Type, a.Severity, a.ProductID, a.SKU, a.Product, a.Stock, a.Threshold, a.Message); err != nil {
			return err
		}
	}
	return nil
}

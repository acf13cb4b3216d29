package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/platform/db"
	"github.com/meridian-bi/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for customers and sales.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, company_id, name, tax_id, email, phone, address, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.TaxID, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateCustomer inserts a customer.
func (r *Repository) CreateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO customers (company_id, name, tax_id, email, phone, address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING `+customerColumns,
		c.CompanyID, c.Name, c.TaxID, c.Email, c.Phone, c.Address)
	return scanCustomer(row)
}

// GetCustomer returns a customer scoped to the company.
func (r *Repository) GetCustomer(ctx context.Context, companyID, id int64) (*Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE company_id = $1 AND id = $2`, companyID, id))
}

// FindCustomerByName returns the first customer matching the name, case
// insensitively. Used by imports to reuse existing customers.
func (r *Repository) FindCustomerByName(ctx context.Context, companyID int64, name string) (*Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE company_id = $1 AND LOWER(name) = LOWER($2) ORDER BY id LIMIT 1`, companyID, name))
}

// ListCustomers returns all customers for a company.
func (r *Repository) ListCustomers(ctx context.Context, companyID int64) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.TaxID, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// UpdateCustomer applies mutable fields.
func (r *Repository) UpdateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `UPDATE customers SET name = $3, tax_id = $4, email = $5, phone = $6, address = $7, updated_at = NOW()
WHERE company_id = $1 AND id = $2 RETURNING `+customerColumns,
		c.CompanyID, c.ID, c.Name, c.TaxID, c.Email, c.Phone, c.Address)
	return scanCustomer(row)
}

// DeleteCustomer removes a customer without sales history.
func (r *Repository) DeleteCustomer(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const saleColumns = `id, company_id, invoice_number, customer_id, customer_name, subtotal, tax_amount, discount, total, payment_status, sold_at, created_by, created_at`

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.CompanyID, &s.InvoiceNumber, &s.CustomerID, &s.CustomerName, &s.Subtotal, &s.TaxAmount, &s.Discount, &s.Total, &s.PaymentStatus, &s.SoldAt, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// CreateSale posts the sale atomically: invoice number from the per-company
// sequence, header and lines inserted, stock decremented per line, and an open
// receivable created when the sale is not fully paid.
func (r *Repository) CreateSale(ctx context.Context, sale Sale, dueDate time.Time) (*Sale, error) {
	var created *Sale
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `INSERT INTO invoice_counters (company_id, seq) VALUES ($1, 1)
ON CONFLICT (company_id) DO UPDATE SET seq = invoice_counters.seq + 1 RETURNING seq`, sale.CompanyID).Scan(&seq); err != nil {
			return fmt.Errorf("sales: next invoice number: %w", err)
		}
		sale.InvoiceNumber = fmt.Sprintf("INV-%06d", seq)

		row := tx.QueryRow(ctx, `INSERT INTO sales (company_id, invoice_number, customer_id, customer_name, subtotal, tax_amount, discount, total, payment_status, sold_at, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW()) RETURNING `+saleColumns,
			sale.CompanyID, sale.InvoiceNumber, sale.CustomerID, sale.CustomerName, sale.Subtotal, sale.TaxAmount, sale.Discount, sale.Total, sale.PaymentStatus, sale.SoldAt, sale.CreatedBy)
		header, err := scanSale(row)
		if err != nil {
			return err
		}

		for i := range sale.Items {
			item := &sale.Items[i]
			item.SaleID = header.ID
			if err := tx.QueryRow(ctx, `INSERT INTO sale_items (sale_id, product_id, product_name, qty, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
				item.SaleID, item.ProductID, item.ProductName, item.Qty, item.UnitPrice, item.LineTotal).Scan(&item.ID); err != nil {
				return err
			}

			tag, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $3, updated_at = NOW()
WHERE company_id = $1 AND id = $2 AND stock >= $3`, sale.CompanyID, item.ProductID, item.Qty)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: product %d", catalog.ErrInsufficientStock, item.ProductID)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO stock_movements (company_id, product_id, qty, reason, ref_id, actor_id, created_at)
VALUES ($1, $2, $3, 'sale', $4, $5, NOW())`,
				sale.CompanyID, item.ProductID, -item.Qty, sale.InvoiceNumber, sale.CreatedBy); err != nil {
				return err
			}
		}

		if sale.PaymentStatus != PaymentPaid {
			if _, err := tx.Exec(ctx, `INSERT INTO receivables (company_id, sale_id, invoice_number, customer_id, customer_name, amount, paid_amount, due_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 0, $7, NOW(), NOW())`,
				sale.CompanyID, header.ID, sale.InvoiceNumber, sale.CustomerID, sale.CustomerName, sale.Total, dueDate); err != nil {
				return err
			}
		}

		header.Items = sale.Items
		created = header
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetSale returns a sale with its line items.
func (r *Repository) GetSale(ctx context.Context, companyID, id int64) (*Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE company_id = $1 AND id = $2`, companyID, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, product_name, qty, unit_price, line_total FROM sale_items WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Qty, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	return sale, rows.Err()
}

// ListSales returns a filtered page of sale headers plus the total count.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	where := []string{"company_id = $1"}
	args := []any{filter.CompanyID}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("sold_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("sold_at < $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT %s FROM sales WHERE %s ORDER BY sold_at DESC, id DESC LIMIT $%d OFFSET $%d`, saleColumns, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var sales []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.InvoiceNumber, &s.CustomerID, &s.CustomerName, &s.Subtotal, &s.TaxAmount, &s.Discount, &s.Total, &s.PaymentStatus, &s.SoldAt, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		sales = append(sales, s)
	}
	return sales, total, rows.Err()
}

// Summarize aggregates sales in a period.
func (r *Repository) Summarize(ctx context.Context, companyID int64, from, to time.Time) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(tax_amount), 0)
FROM sales WHERE company_id = $1 AND sold_at >= $2 AND sold_at < $3`, companyID, from, to).Scan(&s.Count, &s.Revenue, &s.TaxCollected)
	if err != nil {
		return Summary{}, err
	}
	if s.Count > 0 {
		s.AvgTicket = s.Revenue / float64(s.Count)
	}
	return s, nil
}

// MarkPaymentStatus updates the header status; called when receivable payments land.
func (r *Repository) MarkPaymentStatus(ctx context.Context, companyID, saleID int64, status PaymentStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sales SET payment_status = $3 WHERE company_id = $1 AND id = $2`, companyID, saleID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

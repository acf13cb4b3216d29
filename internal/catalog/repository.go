package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-bi/meridian/internal/platform/db"
	"github.com/meridian-bi/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for products.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, company_id, sku, name, category, price, cost, stock, min_stock, max_stock, reorder_point, abc_class, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Category, &p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.MaxStock, &p.ReorderPoint, &p.ABCClass, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Category, &p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.MaxStock, &p.ReorderPoint, &p.ABCClass, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, p Product) (*Product, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO products (company_id, sku, name, category, price, cost, stock, min_stock, max_stock, reorder_point, abc_class, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()) RETURNING `+productColumns,
		p.CompanyID, p.SKU, p.Name, p.Category, p.Price, p.Cost, p.Stock, p.MinStock, p.MaxStock, p.ReorderPoint, p.ABCClass, p.IsActive)
	created, err := scanProduct(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateSKU
		}
		return nil, err
	}
	return created, nil
}

// Get returns a product scoped to the company.
func (r *Repository) Get(ctx context.Context, companyID, id int64) (*Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE company_id = $1 AND id = $2`, companyID, id))
}

// GetBySKU returns a product by its SKU.
func (r *Repository) GetBySKU(ctx context.Context, companyID int64, sku string) (*Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE company_id = $1 AND sku = $2`, companyID, sku))
}

// List returns a filtered page of products plus the total count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	where := []string{"company_id = $1"}
	args := []any{filter.CompanyID}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", len(args), len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.ABCClass != "" {
		args = append(args, filter.ABCClass)
		where = append(where, fmt.Sprintf("abc_class = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+clause, args...).Scan(&total); err != nil {
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
	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`, productColumns, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Update applies mutable fields.
func (r *Repository) Update(ctx context.Context, p Product) (*Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products SET name = $3, category = $4, price = $5, cost = $6, min_stock = $7, max_stock = $8, reorder_point = $9, is_active = $10, updated_at = NOW()
WHERE company_id = $1 AND id = $2 RETURNING `+productColumns,
		p.CompanyID, p.ID, p.Name, p.Category, p.Price, p.Cost, p.MinStock, p.MaxStock, p.ReorderPoint, p.IsActive)
	return scanProduct(row)
}

// Delete removes a product. Sales keep their denormalised product name.
func (r *Repository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListLowStock returns active products at or below their minimum level.
func (r *Repository) ListLowStock(ctx context.Context, companyID int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE company_id = $1 AND is_active AND stock <= min_stock ORDER BY stock ASC`, companyID)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// ListAll returns every product for a company, used by analytics and export.
func (r *Repository) ListAll(ctx context.Context, companyID int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE company_id = $1 ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// AdjustStock applies a signed stock delta and records the movement in one
// transaction. A delta pushing stock below zero fails the transaction.
func (r *Repository) AdjustStock(ctx context.Context, m StockMovement) (*Product, error) {
	var updated *Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `UPDATE products SET stock = stock + $3, updated_at = NOW()
WHERE company_id = $1 AND id = $2 AND stock + $3 >= 0 RETURNING `+productColumns,
			m.CompanyID, m.ProductID, m.Qty)
		p, err := scanProduct(row)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return classifyAdjustFailure(ctx, tx, m)
			}
			return err
		}
		updated = p
		_, err = tx.Exec(ctx, `INSERT INTO stock_movements (company_id, product_id, qty, reason, ref_id, actor_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			m.CompanyID, m.ProductID, m.Qty, m.Reason, m.RefID, m.ActorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// classifyAdjustFailure distinguishes a missing product from a guard rejection.
func classifyAdjustFailure(ctx context.Context, tx pgx.Tx, m StockMovement) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE company_id = $1 AND id = $2)`, m.CompanyID, m.ProductID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return shared.ErrNotFound
	}
	return ErrInsufficientStock
}

// UpdateABCClasses bulk-assigns classification results.
func (r *Repository) UpdateABCClasses(ctx context.Context, companyID int64, classes map[int64]ABCClass) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for id, class := range classes {
			if _, err := tx.Exec(ctx, `UPDATE products SET abc_class = $3, updated_at = NOW() WHERE company_id = $1 AND id = $2`, companyID, id, class); err != nil {
				return err
			}
		}
		return nil
	})
}

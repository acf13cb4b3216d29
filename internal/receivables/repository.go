package receivables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-bi/meridian/internal/platform/db"
	"github.com/meridian-bi/meridian/internal/shared"
)

const receivableColumns = `id, company_id, sale_id, invoice_number, customer_id, customer_name, amount, paid_amount, status, due_at, paid_at, created_at, updated_at`

// Repository persists receivables in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanReceivable(row pgx.Row) (*Receivable, error) {
	var rec Receivable
	err := row.Scan(&rec.ID, &rec.CompanyID, &rec.SaleID, &rec.InvoiceNumber, &rec.CustomerID, &rec.CustomerName,
		&rec.Amount, &rec.PaidAmount, &rec.Status, &rec.DueAt, &rec.PaidAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get loads one receivable.
func (r *Repository) Get(ctx context.Context, companyID, id int64) (*Receivable, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+receivableColumns+` FROM receivables WHERE company_id = $1 AND id = $2`, companyID, id)
	return scanReceivable(row)
}

// List returns a filtered page of receivables, oldest due first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Receivable, int, error) {
	where := `WHERE company_id = $1`
	args := []any{filter.CompanyID}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		where += fmt.Sprintf(` AND customer_id = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM receivables `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM receivables %s ORDER BY due_at ASC, id ASC LIMIT $%d OFFSET $%d`,
		receivableColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Receivable
	for rows.Next() {
		rec, err := scanReceivable(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	return out, total, rows.Err()
}

// ListOutstanding returns every receivable with a remaining balance.
func (r *Repository) ListOutstanding(ctx context.Context, companyID int64) ([]Receivable, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+receivableColumns+` FROM receivables WHERE company_id = $1 AND status <> 'paid' ORDER BY due_at ASC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Receivable
	for rows.Next() {
		rec, err := scanReceivable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// RecordPayment inserts the payment and settles the receivable in one
// transaction. Returns the updated receivable.
func (r *Repository) RecordPayment(ctx context.Context, payment Payment) (*Receivable, error) {
	var updated *Receivable
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+receivableColumns+` FROM receivables WHERE company_id = $1 AND id = $2 FOR UPDATE`,
			payment.CompanyID, payment.ReceivableID)
		rec, err := scanReceivable(row)
		if err != nil {
			return err
		}
		if rec.Status == StatusPaid {
			return ErrAlreadyPaid
		}
		if payment.Amount > rec.Outstanding()+0.005 {
			return ErrOverpayment
		}

		if _, err := tx.Exec(ctx, `INSERT INTO receivable_payments (company_id, receivable_id, amount, method, reference, notes, recorded_by, paid_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
			payment.CompanyID, payment.ReceivableID, payment.Amount, payment.Method, payment.Reference, payment.Notes, payment.RecordedBy, payment.PaidAt); err != nil {
			return err
		}

		newPaid := rec.PaidAmount + payment.Amount
		status := StatusPartial
		var paidAt *time.Time
		if newPaid >= rec.Amount-0.005 {
			status = StatusPaid
			paidAt = &payment.PaidAt
		}
		row = tx.QueryRow(ctx, `UPDATE receivables SET paid_amount = $3, status = $4, paid_at = $5, updated_at = NOW()
WHERE company_id = $1 AND id = $2 RETURNING `+receivableColumns,
			payment.CompanyID, payment.ReceivableID, newPaid, status, paidAt)
		updated, err = scanReceivable(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListPayments returns payments recorded against a receivable.
func (r *Repository) ListPayments(ctx context.Context, companyID, receivableID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, receivable_id, amount, method, reference, notes, recorded_by, paid_at, created_at
FROM receivable_payments WHERE company_id = $1 AND receivable_id = $2 ORDER BY paid_at ASC`, companyID, receivableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.ReceivableID, &p.Amount, &p.Method, &p.Reference, &p.Notes, &p.RecordedBy, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RefreshOverdue flips past-due pending and partial receivables to overdue.
// Returns the number of rows touched.
func (r *Repository) RefreshOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE receivables SET status = 'overdue', updated_at = NOW()
WHERE status IN ('pending', 'partial') AND due_at < $1`, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

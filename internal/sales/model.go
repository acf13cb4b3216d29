// Package sales manages customers and sale documents. Posting a sale decrements
// product stock and opens a receivable in the same transaction.
package sales

import (
	"errors"
	"time"
)

// PaymentStatus enumerates sale payment states.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Customer is a company-scoped buyer record.
type Customer struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sale is an invoice header. The invoice number is generated from a per-company
// sequence and is unique within the tenant.
type Sale struct {
	ID            int64         `json:"id"`
	CompanyID     int64         `json:"company_id"`
	InvoiceNumber string        `json:"invoice_number"`
	CustomerID    int64         `json:"customer_id"`
	CustomerName  string        `json:"customer_name"`
	Subtotal      float64       `json:"subtotal"`
	TaxAmount     float64       `json:"tax_amount"`
	Discount      float64       `json:"discount"`
	Total         float64       `json:"total"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	SoldAt        time.Time     `json:"sold_at"`
	CreatedBy     int64         `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
	Items         []SaleItem    `json:"items,omitempty"`
}

// SaleItem is one product line on a sale.
type SaleItem struct {
	ID          int64   `json:"id"`
	SaleID      int64   `json:"sale_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// ListFilter narrows sale listings.
type ListFilter struct {
	CompanyID  int64
	CustomerID int64
	Status     PaymentStatus
	From       time.Time
	To         time.Time
	Page       int
	PerPage    int
}

// Summary aggregates sales over a period.
type Summary struct {
	Count        int     `json:"count"`
	Revenue      float64 `json:"revenue"`
	TaxCollected float64 `json:"tax_collected"`
	AvgTicket    float64 `json:"avg_ticket"`
}

// ErrEmptySale indicates a sale without line items.
var ErrEmptySale = errors.New("sales: at least one line item required")

// ErrInvalidLine indicates a non-positive quantity or price.
var ErrInvalidLine = errors.New("sales: line qty and unit price must be positive")

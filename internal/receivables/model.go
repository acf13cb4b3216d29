package receivables

import (
	"errors"
	"time"
)

// Status reflects how much of a receivable has been collected.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Receivable is an open balance owed by a customer for a posted sale.
type Receivable struct {
	ID            int64      `json:"id"`
	CompanyID     int64      `json:"company_id"`
	SaleID        int64      `json:"sale_id"`
	InvoiceNumber string     `json:"invoice_number"`
	CustomerID    int64      `json:"customer_id"`
	CustomerName  string     `json:"customer_name"`
	Amount        float64    `json:"amount"`
	PaidAmount    float64    `json:"paid_amount"`
	Status        Status     `json:"status"`
	DueAt         time.Time  `json:"due_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Outstanding returns the remaining balance.
func (r Receivable) Outstanding() float64 {
	return r.Amount - r.PaidAmount
}

// Payment is one collection recorded against a receivable.
type Payment struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	ReceivableID int64     `json:"receivable_id"`
	Amount       float64   `json:"amount"`
	Method       string    `json:"method"`
	Reference    string    `json:"reference"`
	Notes        string    `json:"notes"`
	RecordedBy   int64     `json:"recorded_by"`
	PaidAt       time.Time `json:"paid_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListFilter narrows receivable listings.
type ListFilter struct {
	CompanyID  int64
	CustomerID int64
	Status     Status
	Page       int
	PerPage    int
}

// AgingBucket summarises outstanding balances by days past due.
type AgingBucket struct {
	Current   float64 `json:"current"`
	Bucket30  float64 `json:"bucket_1_30"`
	Bucket60  float64 `json:"bucket_31_60"`
	Bucket90  float64 `json:"bucket_61_90"`
	Bucket120 float64 `json:"bucket_over_90"`
	Total     float64 `json:"total"`
}

// ErrOverpayment indicates a payment larger than the outstanding balance.
var ErrOverpayment = errors.New("receivables: payment exceeds outstanding balance")

// ErrAlreadyPaid indicates a payment against a settled receivable.
var ErrAlreadyPaid = errors.New("receivables: receivable already settled")

// ErrInvalidAmount indicates a non-positive payment amount.
var ErrInvalidAmount = errors.New("receivables: payment amount must be positive")

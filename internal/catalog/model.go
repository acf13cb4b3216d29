// Package catalog manages the tenant product catalog and stock levels.
package catalog

import (
	"errors"
	"time"
)

// ABCClass buckets products by cumulative consumption value.
type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

// Product is a company-scoped catalog entry. SKU uniqueness per company is
// enforced by the database.
type Product struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Price        float64   `json:"price"`
	Cost         float64   `json:"cost"`
	Stock        float64   `json:"stock"`
	MinStock     float64   `json:"min_stock"`
	MaxStock     float64   `json:"max_stock"`
	ReorderPoint float64   `json:"reorder_point"`
	ABCClass     ABCClass  `json:"abc_class,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StockMovement records a manual stock adjustment or a sale decrement.
type StockMovement struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	ProductID int64     `json:"product_id"`
	Qty       float64   `json:"qty"`
	Reason    string    `json:"reason"`
	RefID     string    `json:"ref_id,omitempty"`
	ActorID   int64     `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	CompanyID int64
	Search    string
	Category  string
	ABCClass  ABCClass
	Active    *bool
	Page      int
	PerPage   int
}

// ErrDuplicateSKU indicates a SKU collision within the company.
var ErrDuplicateSKU = errors.New("catalog: sku already exists for company")

// ErrInsufficientStock indicates a decrement below zero.
var ErrInsufficientStock = errors.New("catalog: insufficient stock")

// ErrInvalidQuantity indicates a zero adjustment.
var ErrInvalidQuantity = errors.New("catalog: quantity must be non zero")

package sales

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/shared"
)

// RepositoryPort defines data access methods for sales.
type RepositoryPort interface {
	CreateCustomer(ctx context.Context, c Customer) (*Customer, error)
	GetCustomer(ctx context.Context, companyID, id int64) (*Customer, error)
	ListCustomers(ctx context.Context, companyID int64) ([]Customer, error)
	UpdateCustomer(ctx context.Context, c Customer) (*Customer, error)
	DeleteCustomer(ctx context.Context, companyID, id int64) error
	CreateSale(ctx context.Context, sale Sale, dueDate time.Time) (*Sale, error)
	GetSale(ctx context.Context, companyID, id int64) (*Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error)
	Summarize(ctx context.Context, companyID int64, from, to time.Time) (Summary, error)
}

// ProductLookup resolves product details during sale posting.
type ProductLookup interface {
	Get(ctx context.Context, companyID, id int64) (*catalog.Product, error)
}

// CacheBumper invalidates analytics caches after writes.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Service handles sales business logic.
type Service struct {
	repo     RepositoryPort
	products ProductLookup
	audit    *shared.AuditLogger
	cache    CacheBumper
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, products ProductLookup, audit *shared.AuditLogger, cache CacheBumper) *Service {
	return &Service{repo: repo, products: products, audit: audit, cache: cache}
}

// CustomerInput carries customer fields.
type CustomerInput struct {
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CreateCustomer registers a customer.
func (s *Service) CreateCustomer(ctx context.Context, actor *shared.Identity, input CustomerInput) (*Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("customer name is required")
	}
	return s.repo.CreateCustomer(ctx, Customer{
		CompanyID: actor.CompanyID,
		Name:      strings.TrimSpace(input.Name),
		TaxID:     input.TaxID,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   input.Address,
	})
}

// GetCustomer loads a customer.
func (s *Service) GetCustomer(ctx context.Context, actor *shared.Identity, id int64) (*Customer, error) {
	return s.repo.GetCustomer(ctx, actor.CompanyID, id)
}

// ListCustomers returns all customers for the tenant.
func (s *Service) ListCustomers(ctx context.Context, actor *shared.Identity) ([]Customer, error) {
	return s.repo.ListCustomers(ctx, actor.CompanyID)
}

// UpdateCustomer applies changes.
func (s *Service) UpdateCustomer(ctx context.Context, actor *shared.Identity, id int64, input CustomerInput) (*Customer, error) {
	existing, err := s.repo.GetCustomer(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if input.Name != "" {
		existing.Name = input.Name
	}
	existing.TaxID = input.TaxID
	existing.Email = input.Email
	existing.Phone = input.Phone
	existing.Address = input.Address
	return s.repo.UpdateCustomer(ctx, *existing)
}

// DeleteCustomer removes a customer.
func (s *Service) DeleteCustomer(ctx context.Context, actor *shared.Identity, id int64) error {
	return s.repo.DeleteCustomer(ctx, actor.CompanyID, id)
}

// SaleLineInput is one requested line item.
type SaleLineInput struct {
	ProductID int64   `json:"product_id"`
	Qty       float64 `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
}

// CreateSaleInput describes a sale to post.
type CreateSaleInput struct {
	CustomerID  int64           `json:"customer_id"`
	Items       []SaleLineInput `json:"items"`
	TaxRate     float64         `json:"tax_rate"`
	Discount    float64         `json:"discount"`
	Paid        bool            `json:"paid"`
	SoldAt      time.Time       `json:"sold_at"`
	DueInDays   int             `json:"due_in_days"`
}

// CreateSale validates the request, prices the lines and posts atomically.
func (s *Service) CreateSale(ctx context.Context, actor *shared.Identity, input CreateSaleInput) (*Sale, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptySale
	}
	customer, err := s.repo.GetCustomer(ctx, actor.CompanyID, input.CustomerID)
	if err != nil {
		return nil, errors.New("sales: customer not found")
	}

	sale := Sale{
		CompanyID:    actor.CompanyID,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Discount:     input.Discount,
		CreatedBy:    actor.UserID,
		SoldAt:       input.SoldAt,
	}
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now()
	}

	for _, line := range input.Items {
		if line.Qty <= 0 {
			return nil, ErrInvalidLine
		}
		product, err := s.products.Get(ctx, actor.CompanyID, line.ProductID)
		if err != nil {
			return nil, errors.New("sales: product not found: " + strconv.FormatInt(line.ProductID, 10))
		}
		unitPrice := line.UnitPrice
		if unitPrice <= 0 {
			unitPrice = product.Price
		}
		if unitPrice <= 0 {
			return nil, ErrInvalidLine
		}
		lineTotal := unitPrice * line.Qty
		sale.Subtotal += lineTotal
		sale.Items = append(sale.Items, SaleItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Qty:         line.Qty,
			UnitPrice:   unitPrice,
			LineTotal:   lineTotal,
		})
	}

	if input.Discount < 0 || input.Discount > sale.Subtotal {
		return nil, errors.New("sales: discount out of range")
	}
	taxRate := input.TaxRate
	if taxRate < 0 || taxRate > 1 {
		return nil, errors.New("sales: tax rate must be a fraction between 0 and 1")
	}
	sale.TaxAmount = (sale.Subtotal - sale.Discount) * taxRate
	sale.Total = sale.Subtotal - sale.Discount + sale.TaxAmount
	sale.PaymentStatus = PaymentPending
	if input.Paid {
		sale.PaymentStatus = PaymentPaid
	}

	dueInDays := input.DueInDays
	if dueInDays <= 0 {
		dueInDays = 30
	}
	dueDate := sale.SoldAt.AddDate(0, 0, dueInDays)

	created, err := s.repo.CreateSale(ctx, sale, dueDate)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: actor.CompanyID,
			ActorID:   actor.UserID,
			Action:    "sale.create",
			Entity:    "sale",
			EntityID:  created.InvoiceNumber,
			Meta:      map[string]any{"total": created.Total},
		})
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	return created, nil
}

// GetSale loads a sale with items.
func (s *Service) GetSale(ctx context.Context, actor *shared.Identity, id int64) (*Sale, error) {
	return s.repo.GetSale(ctx, actor.CompanyID, id)
}

// ListSales returns a filtered page.
func (s *Service) ListSales(ctx context.Context, actor *shared.Identity, filter ListFilter) ([]Sale, shared.Pagination, error) {
	filter.CompanyID = actor.CompanyID
	sales, total, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Summarize aggregates the period; defaults to the trailing 30 days.
func (s *Service) Summarize(ctx context.Context, actor *shared.Identity, from, to time.Time) (Summary, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return s.repo.Summarize(ctx, actor.CompanyID, from, to)
}

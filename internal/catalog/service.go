package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/meridian-bi/meridian/internal/shared"
)

// RepositoryPort defines data access methods for the catalog.
type RepositoryPort interface {
	Create(ctx context.Context, p Product) (*Product, error)
	Get(ctx context.Context, companyID, id int64) (*Product, error)
	GetBySKU(ctx context.Context, companyID int64, sku string) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Update(ctx context.Context, p Product) (*Product, error)
	Delete(ctx context.Context, companyID, id int64) error
	ListLowStock(ctx context.Context, companyID int64) ([]Product, error)
	ListAll(ctx context.Context, companyID int64) ([]Product, error)
	AdjustStock(ctx context.Context, m StockMovement) (*Product, error)
	UpdateABCClasses(ctx context.Context, companyID int64, classes map[int64]ABCClass) error
}

// Service handles catalog business logic.
type Service struct {
	repo  RepositoryPort
	audit *shared.AuditLogger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// ProductInput carries product fields for create and update.
type ProductInput struct {
	SKU          string  `json:"sku" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Category     string  `json:"category"`
	Price        float64 `json:"price" validate:"gte=0"`
	Cost         float64 `json:"cost" validate:"gte=0"`
	Stock        float64 `json:"stock" validate:"gte=0"`
	MinStock     float64 `json:"min_stock" validate:"gte=0"`
	MaxStock     float64 `json:"max_stock" validate:"gte=0"`
	ReorderPoint float64 `json:"reorder_point" validate:"gte=0"`
	IsActive     *bool   `json:"is_active"`
}

func (s *Service) validate(input ProductInput) error {
	if strings.TrimSpace(input.SKU) == "" {
		return errors.New("product sku is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return errors.New("product name is required")
	}
	if input.Price < 0 || input.Cost < 0 {
		return errors.New("price and cost must be >= 0")
	}
	if input.Stock < 0 || input.MinStock < 0 || input.MaxStock < 0 || input.ReorderPoint < 0 {
		return errors.New("stock levels must be >= 0")
	}
	if input.MaxStock > 0 && input.MaxStock < input.MinStock {
		return errors.New("max stock must not be below min stock")
	}
	return nil
}

// Create registers a product for the actor's company.
func (s *Service) Create(ctx context.Context, actor *shared.Identity, input ProductInput) (*Product, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product, err := s.repo.Create(ctx, Product{
		CompanyID:    actor.CompanyID,
		SKU:          strings.TrimSpace(input.SKU),
		Name:         strings.TrimSpace(input.Name),
		Category:     input.Category,
		Price:        input.Price,
		Cost:         input.Cost,
		Stock:        input.Stock,
		MinStock:     input.MinStock,
		MaxStock:     input.MaxStock,
		ReorderPoint: input.ReorderPoint,
		IsActive:     active,
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: actor.CompanyID,
			ActorID:   actor.UserID,
			Action:    "product.create",
			Entity:    "product",
			EntityID:  strconv.FormatInt(product.ID, 10),
		})
	}
	return product, nil
}

// Get loads a product.
func (s *Service) Get(ctx context.Context, actor *shared.Identity, id int64) (*Product, error) {
	return s.repo.Get(ctx, actor.CompanyID, id)
}

// List returns a filtered page of products.
func (s *Service) List(ctx context.Context, actor *shared.Identity, filter ListFilter) ([]Product, shared.Pagination, error) {
	filter.CompanyID = actor.CompanyID
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return products, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Update applies changes to an existing product.
func (s *Service) Update(ctx context.Context, actor *shared.Identity, id int64, input ProductInput) (*Product, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	existing.Name = strings.TrimSpace(input.Name)
	existing.Category = input.Category
	existing.Price = input.Price
	existing.Cost = input.Cost
	existing.MinStock = input.MinStock
	existing.MaxStock = input.MaxStock
	existing.ReorderPoint = input.ReorderPoint
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}
	return s.repo.Update(ctx, *existing)
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, actor *shared.Identity, id int64) error {
	if err := s.repo.Delete(ctx, actor.CompanyID, id); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: actor.CompanyID,
			ActorID:   actor.UserID,
			Action:    "product.delete",
			Entity:    "product",
			EntityID:  strconv.FormatInt(id, 10),
		})
	}
	return nil
}

// LowStock returns products at or below minimum level.
func (s *Service) LowStock(ctx context.Context, actor *shared.Identity) ([]Product, error) {
	return s.repo.ListLowStock(ctx, actor.CompanyID)
}

// AdjustStockInput describes a manual stock adjustment.
type AdjustStockInput struct {
	Qty    float64 `json:"qty"`
	Reason string  `json:"reason"`
}

// AdjustStock applies a signed delta with a movement record.
func (s *Service) AdjustStock(ctx context.Context, actor *shared.Identity, productID int64, input AdjustStockInput) (*Product, error) {
	if input.Qty == 0 {
		return nil, ErrInvalidQuantity
	}
	reason := input.Reason
	if reason == "" {
		reason = "manual adjustment"
	}
	return s.repo.AdjustStock(ctx, StockMovement{
		CompanyID: actor.CompanyID,
		ProductID: productID,
		Qty:       input.Qty,
		Reason:    reason,
		ActorID:   actor.UserID,
	})
}

package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/sales"
	"github.com/meridian-bi/meridian/internal/shared"
)

// Importable entities.
const (
	EntityProducts  = "products"
	EntityCustomers = "customers"
	EntitySales     = "sales"
)

// ErrDuplicateFile indicates the same file content was already imported.
var ErrDuplicateFile = errors.New("ingest: file already imported")

// ErrUnknownEntity indicates an unsupported import target.
var ErrUnknownEntity = errors.New("ingest: unknown entity")

// RowError reports which row failed and why.
type RowError struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

// Report summarises an import run. Partial success is the norm: valid rows
// land even when later rows fail.
type Report struct {
	Entity      string     `json:"entity"`
	TotalRows   int        `json:"total_rows"`
	Imported    int        `json:"imported"`
	Invalid     []RowError `json:"invalid"`
	Fingerprint string     `json:"fingerprint"`
}

// ProductWriter persists imported products.
type ProductWriter interface {
	Create(ctx context.Context, p catalog.Product) (*catalog.Product, error)
	GetBySKU(ctx context.Context, companyID int64, sku string) (*catalog.Product, error)
}

// SalesWriter persists imported customers and sales.
type SalesWriter interface {
	CreateCustomer(ctx context.Context, c sales.Customer) (*sales.Customer, error)
	FindCustomerByName(ctx context.Context, companyID int64, name string) (*sales.Customer, error)
	CreateSale(ctx context.Context, sale sales.Sale, dueDate time.Time) (*sales.Sale, error)
}

// TaskEnqueuer schedules follow-up work after an import.
type TaskEnqueuer interface {
	EnqueueABCReclassify(ctx context.Context, companyID int64) error
	EnqueueAlertScan(ctx context.Context, companyID int64) error
}

// CacheBumper invalidates analytics caches after writes.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

type productRow struct {
	SKU          string  `validate:"required"`
	Name         string  `validate:"required"`
	Category     string
	Price        float64 `validate:"gte=0"`
	Cost         float64 `validate:"gte=0"`
	Stock        float64 `validate:"gte=0"`
	MinStock     float64 `validate:"gte=0"`
	MaxStock     float64 `validate:"gte=0"`
	ReorderPoint float64 `validate:"gte=0"`
}

type customerRow struct {
	Name    string `validate:"required"`
	TaxID   string
	Email   string `validate:"omitempty,email"`
	Phone   string
	Address string
}

type saleRow struct {
	Customer  string  `validate:"required"`
	SKU       string  `validate:"required"`
	Qty       float64 `validate:"gt=0"`
	UnitPrice float64 `validate:"gt=0"`
	Date      time.Time
}

// FingerprintStore tracks processed file fingerprints.
type FingerprintStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service runs file imports.
type Service struct {
	logger      *slog.Logger
	products    ProductWriter
	sales       SalesWriter
	idempotency FingerprintStore
	tasks       TaskEnqueuer
	cache       CacheBumper
	validate    *validator.Validate
}

// NewService builds Service instance.
func NewService(logger *slog.Logger, products ProductWriter, salesRepo SalesWriter, idempotency FingerprintStore, tasks TaskEnqueuer, cache CacheBumper) *Service {
	return &Service{
		logger:      logger,
		products:    products,
		sales:       salesRepo,
		idempotency: idempotency,
		tasks:       tasks,
		cache:       cache,
		validate:    validator.New(),
	}
}

// Fingerprint hashes file content scoped to the company, used to reject
// re-imports of the same file.
func Fingerprint(companyID int64, data []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:", companyID)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Import parses the file and inserts valid rows one batch at a time. The
// progress callback, when set, receives a line after every row.
func (s *Service) Import(ctx context.Context, actor *shared.Identity, entity, filename string, data []byte, progress func(Progress)) (*Report, error) {
	fingerprint := Fingerprint(actor.CompanyID, data)
	if err := s.idempotency.CheckAndInsert(ctx, fingerprint, "import:"+entity); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return nil, ErrDuplicateFile
		}
		return nil, err
	}

	rows, err := ParseFile(entity, filename, data)
	if err != nil {
		// Nothing landed; allow a corrected upload of the same bytes.
		_ = s.idempotency.Delete(ctx, fingerprint)
		return nil, err
	}

	report := &Report{Entity: entity, TotalRows: len(rows), Fingerprint: fingerprint}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		var rowErrs []string
		switch entity {
		case EntityProducts:
			rowErrs = s.importProduct(ctx, actor, row)
		case EntityCustomers:
			rowErrs = s.importCustomer(ctx, actor, row)
		case EntitySales:
			rowErrs = s.importSale(ctx, actor, row)
		default:
			_ = s.idempotency.Delete(ctx, fingerprint)
			return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
		}
		if len(rowErrs) > 0 {
			report.Invalid = append(report.Invalid, RowError{Row: row.Line, Errors: rowErrs})
		} else {
			report.Imported++
		}
		if progress != nil {
			progress(Progress{
				Processed: report.Imported + len(report.Invalid),
				Total:     report.TotalRows,
				Imported:  report.Imported,
				Failed:    len(report.Invalid),
			})
		}
	}

	if report.Imported > 0 {
		if s.cache != nil {
			_ = s.cache.Bump(ctx)
		}
		if s.tasks != nil {
			if err := s.tasks.EnqueueABCReclassify(ctx, actor.CompanyID); err != nil {
				s.logger.Warn("enqueue abc reclassify", slog.Any("error", err))
			}
			if err := s.tasks.EnqueueAlertScan(ctx, actor.CompanyID); err != nil {
				s.logger.Warn("enqueue alert scan", slog.Any("error", err))
			}
		}
	}
	return report, nil
}

// Progress is one line of the streaming import protocol.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Imported  int `json:"imported"`
	Failed    int `json:"failed"`
}

func (s *Service) importProduct(ctx context.Context, actor *shared.Identity, row RawRow) []string {
	var errs []string
	p := productRow{
		SKU:      row.Fields["sku"],
		Name:     row.Fields["name"],
		Category: row.Fields["category"],
	}
	numeric := []struct {
		field string
		dest  *float64
	}{
		{"price", &p.Price},
		{"cost", &p.Cost},
		{"stock", &p.Stock},
		{"min_stock", &p.MinStock},
		{"max_stock", &p.MaxStock},
		{"reorder_point", &p.ReorderPoint},
	}
	for _, n := range numeric {
		raw := row.Fields[n.field]
		if raw == "" {
			continue
		}
		value, err := ParseFlexibleNumber(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %q is not a number", n.field, raw))
			continue
		}
		*n.dest = value
	}
	if err := s.validate.Struct(p); err != nil {
		errs = append(errs, validationMessages(err)...)
	}
	if len(errs) > 0 {
		return errs
	}

	_, err := s.products.Create(ctx, catalog.Product{
		CompanyID:    actor.CompanyID,
		SKU:          p.SKU,
		Name:         p.Name,
		Category:     p.Category,
		Price:        p.Price,
		Cost:         p.Cost,
		Stock:        p.Stock,
		MinStock:     p.MinStock,
		MaxStock:     p.MaxStock,
		ReorderPoint: p.ReorderPoint,
		IsActive:     true,
	})
	if errors.Is(err, catalog.ErrDuplicateSKU) {
		return []string{fmt.Sprintf("sku %q already exists", p.SKU)}
	}
	if err != nil {
		return []string{err.Error()}
	}
	return nil
}

func (s *Service) importCustomer(ctx context.Context, actor *shared.Identity, row RawRow) []string {
	c := customerRow{
		Name:    row.Fields["name"],
		TaxID:   row.Fields["tax_id"],
		Email:   row.Fields["email"],
		Phone:   row.Fields["phone"],
		Address: row.Fields["address"],
	}
	if err := s.validate.Struct(c); err != nil {
		return validationMessages(err)
	}
	_, err := s.sales.CreateCustomer(ctx, sales.Customer{
		CompanyID: actor.CompanyID,
		Name:      c.Name,
		TaxID:     c.TaxID,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
	})
	if err != nil {
		return []string{err.Error()}
	}
	return nil
}

func (s *Service) importSale(ctx context.Context, actor *shared.Identity, row RawRow) []string {
	var errs []string
	sr := saleRow{
		Customer: row.Fields["customer"],
		SKU:      row.Fields["sku"],
	}
	if raw := row.Fields["qty"]; raw != "" {
		if v, err := ParseFlexibleNumber(raw); err == nil {
			sr.Qty = v
		} else {
			errs = append(errs, fmt.Sprintf("qty: %q is not a number", raw))
		}
	}
	if raw := row.Fields["unit_price"]; raw != "" {
		if v, err := ParseFlexibleNumber(raw); err == nil {
			sr.UnitPrice = v
		} else {
			errs = append(errs, fmt.Sprintf("unit_price: %q is not a number", raw))
		}
	}
	if raw := row.Fields["date"]; raw != "" {
		parsed, err := parseImportDate(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("date: %q is not a date", raw))
		} else {
			sr.Date = parsed
		}
	}
	if err := s.validate.Struct(sr); err != nil {
		errs = append(errs, validationMessages(err)...)
	}
	if len(errs) > 0 {
		return errs
	}

	customer, err := s.sales.FindCustomerByName(ctx, actor.CompanyID, sr.Customer)
	if errors.Is(err, shared.ErrNotFound) {
		customer, err = s.sales.CreateCustomer(ctx, sales.Customer{CompanyID: actor.CompanyID, Name: sr.Customer})
	}
	if err != nil {
		return []string{fmt.Sprintf("customer %q: %v", sr.Customer, err)}
	}
	product, err := s.products.GetBySKU(ctx, actor.CompanyID, sr.SKU)
	if err != nil {
		return []string{fmt.Sprintf("unknown sku %q", sr.SKU)}
	}

	soldAt := sr.Date
	if soldAt.IsZero() {
		soldAt = time.Now()
	}
	total := sr.Qty * sr.UnitPrice
	_, err = s.sales.CreateSale(ctx, sales.Sale{
		CompanyID:     actor.CompanyID,
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		Subtotal:      total,
		Total:         total,
		PaymentStatus: sales.PaymentPaid,
		CreatedBy:     actor.UserID,
		SoldAt:        soldAt,
		Items: []sales.SaleItem{{
			ProductID:   product.ID,
			ProductName: product.Name,
			Qty:         sr.Qty,
			UnitPrice:   sr.UnitPrice,
			LineTotal:   total,
		}},
	}, soldAt.AddDate(0, 0, 30))
	if errors.Is(err, catalog.ErrInsufficientStock) {
		return []string{err.Error()}
	}
	if err != nil {
		return []string{err.Error()}
	}
	return nil
}

func parseImportDate(raw string) (time.Time, error) {
	layouts := []string{"2006-01-02", "02/01/2006", "02-01-2006", time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("ingest: unparseable date %q", raw)
}

func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return out
}

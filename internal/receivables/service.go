package receivables

import (
	"context"
	"strconv"
	"time"

	"github.com/meridian-bi/meridian/internal/sales"
	"github.com/meridian-bi/meridian/internal/shared"
)

// RepositoryPort defines data access methods for receivables.
type RepositoryPort interface {
	Get(ctx context.Context, companyID, id int64) (*Receivable, error)
	List(ctx context.Context, filter ListFilter) ([]Receivable, int, error)
	ListOutstanding(ctx context.Context, companyID int64) ([]Receivable, error)
	RecordPayment(ctx context.Context, payment Payment) (*Receivable, error)
	ListPayments(ctx context.Context, companyID, receivableID int64) ([]Payment, error)
	RefreshOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// SaleMarker syncs the sale header when a receivable settles.
type SaleMarker interface {
	MarkPaymentStatus(ctx context.Context, companyID, saleID int64, status sales.PaymentStatus) error
}

// CacheBumper invalidates analytics caches after writes.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Service handles collections business logic.
type Service struct {
	repo  RepositoryPort
	sales SaleMarker
	audit *shared.AuditLogger
	cache CacheBumper
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, sales SaleMarker, audit *shared.AuditLogger, cache CacheBumper) *Service {
	return &Service{repo: repo, sales: sales, audit: audit, cache: cache}
}

// Get loads one receivable with its payments.
func (s *Service) Get(ctx context.Context, actor *shared.Identity, id int64) (*Receivable, []Payment, error) {
	rec, err := s.repo.Get(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.repo.ListPayments(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, nil, err
	}
	return rec, payments, nil
}

// List returns a filtered page.
func (s *Service) List(ctx context.Context, actor *shared.Identity, filter ListFilter) ([]Receivable, shared.Pagination, error) {
	filter.CompanyID = actor.CompanyID
	recs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return recs, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// PaymentInput describes a collection to record.
type PaymentInput struct {
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Reference string    `json:"reference"`
	Notes     string    `json:"notes"`
	PaidAt    time.Time `json:"paid_at"`
}

// RecordPayment applies a payment and keeps the sale header in step.
func (s *Service) RecordPayment(ctx context.Context, actor *shared.Identity, receivableID int64, input PaymentInput) (*Receivable, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if input.PaidAt.IsZero() {
		input.PaidAt = time.Now()
	}
	updated, err := s.repo.RecordPayment(ctx, Payment{
		CompanyID:    actor.CompanyID,
		ReceivableID: receivableID,
		Amount:       input.Amount,
		Method:       input.Method,
		Reference:    input.Reference,
		Notes:        input.Notes,
		RecordedBy:   actor.UserID,
		PaidAt:       input.PaidAt,
	})
	if err != nil {
		return nil, err
	}

	status := sales.PaymentPartial
	if updated.Status == StatusPaid {
		status = sales.PaymentPaid
	}
	if err := s.sales.MarkPaymentStatus(ctx, actor.CompanyID, updated.SaleID, status); err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: actor.CompanyID,
			ActorID:   actor.UserID,
			Action:    "receivable.payment",
			Entity:    "receivable",
			EntityID:  strconv.FormatInt(receivableID, 10),
			Meta:      map[string]any{"amount": input.Amount, "status": updated.Status},
		})
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	return updated, nil
}

// Aging groups outstanding balances by days past due.
func (s *Service) Aging(ctx context.Context, actor *shared.Identity, asOf time.Time) (AgingBucket, error) {
	recs, err := s.repo.ListOutstanding(ctx, actor.CompanyID)
	if err != nil {
		return AgingBucket{}, err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}
	var bucket AgingBucket
	for _, rec := range recs {
		outstanding := rec.Outstanding()
		if outstanding <= 0 {
			continue
		}
		days := int(asOf.Sub(rec.DueAt).Hours() / 24)
		switch {
		case days <= 0:
			bucket.Current += outstanding
		case days <= 30:
			bucket.Bucket30 += outstanding
		case days <= 60:
			bucket.Bucket60 += outstanding
		case days <= 90:
			bucket.Bucket90 += outstanding
		default:
			bucket.Bucket120 += outstanding
		}
		bucket.Total += outstanding
	}
	return bucket, nil
}

// RefreshOverdue marks past-due receivables; run from the scheduler.
func (s *Service) RefreshOverdue(ctx context.Context) (int64, error) {
	return s.repo.RefreshOverdue(ctx, time.Now())
}

package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-bi/meridian/internal/shared"
	"github.com/meridian-bi/meridian/internal/tenancy"
)

// ReceivablesRefresher sweeps past-due receivables.
type ReceivablesRefresher interface {
	RefreshOverdue(ctx context.Context) (int64, error)
}

// AnalyticsMaintainer recomputes per-company derived data.
type AnalyticsMaintainer interface {
	Reclassify(ctx context.Context, companyID int64) (int, error)
	ScanAlerts(ctx context.Context, companyID int64) (int, error)
}

// InvitationPurger drops expired invitations.
type InvitationPurger interface {
	PurgeExpiredInvitations(ctx context.Context) (int64, error)
}

// CompanyLister enumerates tenants for all-company sweeps.
type CompanyLister interface {
	ListCompanies(ctx context.Context) ([]tenancy.Company, error)
}

// Handlers bundles the task implementations with their dependencies.
type Handlers struct {
	Logger      *slog.Logger
	Receivables ReceivablesRefresher
	Analytics   AnalyticsMaintainer
	Tenancy     InvitationPurger
	Companies   CompanyLister
	Idempotency *shared.IdempotencyStore
}

// HandleReceivablesRefresh marks past-due receivables overdue.
func (h *Handlers) HandleReceivablesRefresh(ctx context.Context, _ *asynq.Task) error {
	touched, err := h.Receivables.RefreshOverdue(ctx)
	if err != nil {
		return err
	}
	h.Logger.Info("receivables refresh", slog.Int64("marked_overdue", touched))
	return nil
}

// HandleABCReclassify recomputes ABC classes for one or all companies.
func (h *Handlers) HandleABCReclassify(ctx context.Context, t *asynq.Task) error {
	return h.perCompany(ctx, t, "abc reclassify", func(ctx context.Context, companyID int64) error {
		updated, err := h.Analytics.Reclassify(ctx, companyID)
		if err != nil {
			return err
		}
		h.Logger.Info("abc reclassify", slog.Int64("company_id", companyID), slog.Int("updated", updated))
		return nil
	})
}

// HandleAlertScan recomputes and persists inventory alerts.
func (h *Handlers) HandleAlertScan(ctx context.Context, t *asynq.Task) error {
	return h.perCompany(ctx, t, "alert scan", func(ctx context.Context, companyID int64) error {
		count, err := h.Analytics.ScanAlerts(ctx, companyID)
		if err != nil {
			return err
		}
		h.Logger.Info("alert scan", slog.Int64("company_id", companyID), slog.Int("alerts", count))
		return nil
	})
}

// HandlePurgeInvitations drops expired invitations and stale idempotency keys.
func (h *Handlers) HandlePurgeInvitations(ctx context.Context, _ *asynq.Task) error {
	purged, err := h.Tenancy.PurgeExpiredInvitations(ctx)
	if err != nil {
		return err
	}
	if err := h.Idempotency.Cleanup(ctx, 90*24*time.Hour); err != nil {
		return err
	}
	h.Logger.Info("purge invitations", slog.Int64("purged", purged))
	return nil
}

// perCompany runs fn for the payload's company, or for every active company
// when the payload is empty.
func (h *Handlers) perCompany(ctx context.Context, t *asynq.Task, name string, fn func(context.Context, int64) error) error {
	var payload CompanyPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.CompanyID > 0 {
		return fn(ctx, payload.CompanyID)
	}

	companies, err := h.Companies.ListCompanies(ctx)
	if err != nil {
		return err
	}
	for _, company := range companies {
		if !company.IsActive {
			continue
		}
		if err := fn(ctx, company.ID); err != nil {
			h.Logger.Error(name, slog.Int64("company_id", company.ID), slog.Any("error", err))
		}
	}
	return nil
}

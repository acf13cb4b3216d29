package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-bi/meridian/internal/platform/httpx"
	"github.com/meridian-bi/meridian/internal/shared"
)

// Handler serves report downloads.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers export routes. Format comes from the query string:
// ?format=csv|xlsx|pdf, defaulting to csv.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory", h.report(func(ctx context.Context, actor *shared.Identity, _, _ time.Time) (Report, error) {
		return h.service.InventoryReport(ctx, actor)
	}, "inventory"))
	r.Get("/sales", h.report(func(ctx context.Context, actor *shared.Identity, from, to time.Time) (Report, error) {
		return h.service.SalesReport(ctx, actor, from, to)
	}, "sales"))
	r.Get("/collections", h.report(func(ctx context.Context, actor *shared.Identity, _, _ time.Time) (Report, error) {
		return h.service.CollectionsReport(ctx, actor)
	}, "collections"))
	r.Get("/dashboard", h.report(func(ctx context.Context, actor *shared.Identity, _, _ time.Time) (Report, error) {
		return h.service.DashboardReport(ctx, actor)
	}, "dashboard"))
}

type reportBuilder func(ctx context.Context, actor *shared.Identity, from, to time.Time) (Report, error)

func (h *Handler) report(build reportBuilder, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from := parseDate(q.Get("from"))
		to := parseDate(q.Get("to"))
		format := q.Get("format")
		if format == "" {
			format = "csv"
		}

		report, err := build(r.Context(), shared.IdentityFromContext(r.Context()), from, to)
		if err != nil {
			h.logger.Error("build report", slog.String("report", name), slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not build report")
			return
		}

		filename := fmt.Sprintf("%s_%s", name, time.Now().Format("20060102"))
		switch format {
		case "csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".csv"))
			var buf bytes.Buffer
			if err := RenderCSV(&buf, report); err != nil {
				h.renderErr(w, name, err)
				return
			}
			_, _ = w.Write(buf.Bytes())
		case "xlsx":
			payload, err := RenderXLSX(report)
			if err != nil {
				h.renderErr(w, name, err)
				return
			}
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".xlsx"))
			_, _ = w.Write(payload)
		case "pdf":
			payload, err := RenderPDF(report)
			if err != nil {
				h.renderErr(w, name, err)
				return
			}
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".pdf"))
			_, _ = w.Write(payload)
		default:
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "format must be csv, xlsx or pdf")
		}
	}
}

func (h *Handler) renderErr(w http.ResponseWriter, name string, err error) {
	h.logger.Error("render report", slog.String("report", name), slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not render report")
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01-02", value)
	return t
}

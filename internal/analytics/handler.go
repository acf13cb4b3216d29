package analytics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-bi/meridian/internal/platform/httpx"
	"github.com/meridian-bi/meridian/internal/shared"
)

// Handler manages analytics endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	admin   func(http.Handler) http.Handler
}

// NewHandler builds Handler instance. admin gates the reclassify route.
func NewHandler(logger *slog.Logger, service *Service, admin func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, admin: admin}
}

// MountRoutes registers analytics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/kpis", h.summary)
	r.Get("/trend", h.trend)
	r.Get("/abc", h.abc)
	r.With(h.admin).Post("/abc/reclassify", h.reclassify)
}

// MountInventoryRoutes registers inventory alert routes.
func (h *Handler) MountInventoryRoutes(r chi.Router) {
	r.Get("/alerts", h.alerts)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := h.service.Summary(r.Context(), shared.IdentityFromContext(r.Context()), parseDate(q.Get("from")), parseDate(q.Get("to")))
	if err != nil {
		h.logger.Error("kpi summary", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not compute summary")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) trend(w http.ResponseWriter, r *http.Request) {
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))
	points, err := h.service.Trend(r.Context(), shared.IdentityFromContext(r.Context()), months)
	if err != nil {
		h.logger.Error("revenue trend", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not compute trend")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"trend": points})
}

func (h *Handler) abc(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.ABC(r.Context(), shared.IdentityFromContext(r.Context()))
	if err != nil {
		h.logger.Error("abc classification", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not classify products")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"classification": assignments})
}

func (h *Handler) reclassify(w http.ResponseWriter, r *http.Request) {
	actor := shared.IdentityFromContext(r.Context())
	updated, err := h.service.Reclassify(r.Context(), actor.CompanyID)
	if err != nil {
		h.logger.Error("abc reclassify", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not reclassify products")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	actor := shared.IdentityFromContext(r.Context())
	alerts, err := h.service.Alerts(r.Context(), actor.CompanyID)
	if err != nil {
		h.logger.Error("inventory alerts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not compute alerts")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// DataStatistics reports row counts and date coverage per entity.
func (h *Handler) DataStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context(), shared.IdentityFromContext(r.Context()))
	if err != nil {
		h.logger.Error("data statistics", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not compute statistics")
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01-02", value)
	return t
}

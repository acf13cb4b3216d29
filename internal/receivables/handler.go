package receivables

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-bi/meridian/internal/platform/httpx"
	"github.com/meridian-bi/meridian/internal/shared"
)

// Handler manages collections endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers collections routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/aging", h.aging)
	r.Get("/{id}", h.get)
	r.Post("/{id}/payments", h.recordPayment)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	q := r.URL.Query()
	customerID, _ := strconv.ParseInt(q.Get("customer_id"), 10, 64)
	recs, pagination, err := h.service.List(r.Context(), shared.IdentityFromContext(r.Context()), ListFilter{
		CustomerID: customerID,
		Status:     Status(q.Get("status")),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		h.respondErr(w, "list receivables", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"receivables": recs,
		"pagination":  pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, payments, err := h.service.Get(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		h.respondErr(w, "get receivable", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"receivable": rec,
		"payments":   payments,
	})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input PaymentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	rec, err := h.service.RecordPayment(r.Context(), shared.IdentityFromContext(r.Context()), id, input)
	if err != nil {
		h.respondErr(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	asOf := time.Time{}
	if v := r.URL.Query().Get("as_of"); v != "" {
		asOf, _ = time.Parse("2006-01-02", v)
	}
	bucket, err := h.service.Aging(r.Context(), shared.IdentityFromContext(r.Context()), asOf)
	if err != nil {
		h.respondErr(w, "receivables aging", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bucket)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "receivable not found")
	case errors.Is(err, ErrOverpayment), errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, ErrAlreadyPaid):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

package ingest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-bi/meridian/internal/platform/httpx"
	"github.com/meridian-bi/meridian/internal/shared"
)

// Handler manages file import endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	maxBytes int64
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, maxBytes int64) *Handler {
	return &Handler{logger: logger, service: service, maxBytes: maxBytes}
}

// MountRoutes registers import routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{entity}", h.importFile)
	r.Post("/{entity}/stream", h.importStream)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (entity, filename string, data []byte, ok bool) {
	entity = chi.URLParam(r, "entity")
	switch entity {
	case EntityProducts, EntityCustomers, EntitySales:
	default:
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown import entity")
		return "", "", nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "multipart field 'file' is required")
		return "", "", nil, false
	}
	defer func() { _ = file.Close() }()

	data, err = io.ReadAll(file)
	if err != nil {
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "file exceeds the upload limit")
		return "", "", nil, false
	}
	return entity, header.Filename, data, true
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	entity, filename, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	report, err := h.service.Import(r.Context(), shared.IdentityFromContext(r.Context()), entity, filename, data, nil)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// importStream writes one JSON object per line while rows are processed, then
// a final line carrying the full report. Client disconnects cancel the run
// through the request context.
func (h *Handler) importStream(w http.ResponseWriter, r *http.Request) {
	entity, filename, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	progress := func(p Progress) {
		_ = enc.Encode(map[string]any{"type": "progress", "data": p})
		if canFlush {
			flusher.Flush()
		}
	}

	report, err := h.service.Import(r.Context(), shared.IdentityFromContext(r.Context()), entity, filename, data, progress)
	if err != nil {
		_ = enc.Encode(map[string]any{"type": "error", "error": err.Error()})
		if canFlush {
			flusher.Flush()
		}
		return
	}
	_ = enc.Encode(map[string]any{"type": "done", "data": report})
	if canFlush {
		flusher.Flush()
	}
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateFile):
		httpx.Problem(w, http.StatusConflict, "Conflict", "this file was already imported")
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrLegacyExcel):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Error("import file", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	}
}

package demo

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/meridian-bi/meridian/internal/platform/httpx"
	"github.com/meridian-bi/meridian/internal/shared"
)

// Handler exposes the test data generator.
type Handler struct {
	logger    *slog.Logger
	generator *Generator
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, generator *Generator) *Handler {
	return &Handler{logger: logger, generator: generator}
}

// Generate seeds the caller's company with demo data. The router mounts this
// behind the admin role middleware.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	actor := shared.IdentityFromContext(r.Context())

	var input struct {
		Seed int64 `json:"seed"`
	}
	// Body is optional; a missing or invalid one falls back to a time seed.
	_ = httpx.DecodeJSON(r, &input)
	if input.Seed == 0 {
		input.Seed = time.Now().UnixNano()
	}

	result, err := h.generator.Generate(r.Context(), actor, input.Seed)
	if err != nil {
		h.logger.Error("generate demo data", slog.Any("error", err))
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

package assistant

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-bi/meridian/internal/platform/httpx"
	"github.com/meridian-bi/meridian/internal/shared"
)

// Handler manages AI chat endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountChatRoutes registers conversation routes.
func (h *Handler) MountChatRoutes(r chi.Router) {
	r.Get("/conversations", h.listConversations)
	r.Get("/conversations/{id}", h.getConversation)
	r.Post("/messages", h.chat)
}

// MountAIRoutes registers analysis routes.
func (h *Handler) MountAIRoutes(r chi.Router) {
	r.Post("/analyze-inventory", h.analyzeInventory)
}

func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.service.ListConversations(r.Context(), shared.IdentityFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, "list conversations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (h *Handler) getConversation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid conversation id")
		return
	}
	conv, messages, err := h.service.GetConversation(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		h.respondErr(w, "get conversation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"conversation": conv, "messages": messages})
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ConversationID int64  `json:"conversation_id"`
		Content        string `json:"content"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	conv, reply, err := h.service.Chat(r.Context(), shared.IdentityFromContext(r.Context()), input.ConversationID, input.Content)
	if err != nil {
		h.respondErr(w, "chat", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"conversation": conv, "reply": reply})
}

func (h *Handler) analyzeInventory(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.AnalyzeInventory(r.Context(), shared.IdentityFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, "analyze inventory", err)
		return
	}
	httpx.JSON(w, http.StatusOK, analysis)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "conversation not found")
	case errors.Is(err, ErrNoAPIKey):
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", disabledMessage)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", err.Error())
	}
}

package tenancy

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-bi/meridian/internal/platform/httpx"
	"github.com/meridian-bi/meridian/internal/shared"
)

// Handler manages company and invitation endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountCompanyRoutes registers authenticated company routes.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	r.Get("/", h.lookupBySlug)
	r.Get("/{id}", h.getCompany)
	r.Put("/{id}", h.updateCompany)
	r.Delete("/{id}", h.deactivateCompany)
	r.Get("/{id}/users", h.listUsers)
	r.Post("/{id}/invitations", h.createInvitation)
	r.Get("/{id}/invitations", h.listInvitations)
}

type signupRequest struct {
	CompanyName   string           `json:"company_name"`
	Slug          string           `json:"slug"`
	Tier          SubscriptionTier `json:"tier"`
	AdminEmail    string           `json:"admin_email"`
	AdminName     string           `json:"admin_name"`
	AdminPassword string           `json:"admin_password"`
}

// CreateCompany handles tenant signup. No token is required.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	company, err := h.service.Signup(r.Context(), SignupInput{
		CompanyName:   req.CompanyName,
		Slug:          req.Slug,
		Tier:          req.Tier,
		AdminEmail:    req.AdminEmail,
		AdminName:     req.AdminName,
		AdminPassword: req.AdminPassword,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
			return
		}
		h.logger.Error("company signup", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, company)
}

func (h *Handler) lookupBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "slug query parameter required")
		return
	}
	company, err := h.service.GetCompanyBySlug(r.Context(), slug)
	if err != nil {
		h.respondErr(w, "lookup company by slug", err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	company, err := h.service.GetCompany(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		h.respondErr(w, "get company", err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

type updateCompanyRequest struct {
	Name     string           `json:"name"`
	Tier     SubscriptionTier `json:"tier"`
	Settings json.RawMessage  `json:"settings"`
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateCompanyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	company, err := h.service.UpdateCompany(r.Context(), shared.IdentityFromContext(r.Context()), id, UpdateCompanyInput{
		Name:     req.Name,
		Tier:     req.Tier,
		Settings: req.Settings,
	})
	if err != nil {
		h.respondErr(w, "update company", err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) deactivateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateCompany(r.Context(), shared.IdentityFromContext(r.Context()), id); err != nil {
		h.respondErr(w, "deactivate company", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	users, err := h.service.ListCompanyUsers(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		h.respondErr(w, "list company users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) createInvitation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req inviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	inv, err := h.service.Invite(r.Context(), shared.IdentityFromContext(r.Context()), id, req.Email, req.Role)
	if err != nil {
		h.respondErr(w, "create invitation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) listInvitations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	invitations, err := h.service.ListInvitations(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		h.respondErr(w, "list invitations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, invitations)
}

type acceptRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AcceptInvitation redeems an invitation token. No token auth is required.
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req acceptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	user, err := h.service.AcceptInvitation(r.Context(), AcceptInput{
		Token:    token,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		h.respondErr(w, "accept invitation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
	case errors.Is(err, ErrDuplicateSlug):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return 0, false
	}
	return id, true
}

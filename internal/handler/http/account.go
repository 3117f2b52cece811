package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rdGxd/todo-list/internal/auth"
	"github.com/rdGxd/todo-list/internal/domain"
	"github.com/rdGxd/todo-list/internal/service"
	apperrors "github.com/rdGxd/todo-list/pkg/errors"
	"github.com/rdGxd/todo-list/pkg/httputil"
	"github.com/rdGxd/todo-list/pkg/pagination"
)

// AccountService is the account management API the account handler needs.
type AccountService interface {
	Register(ctx context.Context, input service.RegisterInput) (*domain.Account, error)
	Me(ctx context.Context, caller *auth.Principal) (*domain.Account, error)
	Get(ctx context.Context, caller *auth.Principal, id string) (*domain.Account, error)
	Update(ctx context.Context, caller *auth.Principal, id string, update domain.AccountUpdate) (*domain.Account, error)
	Delete(ctx context.Context, caller *auth.Principal, id string) error
	List(ctx context.Context, page pagination.Params) (pagination.Result[domain.Account], error)
	SetRoles(ctx context.Context, caller *auth.Principal, id string, roles []string) (*domain.Account, error)
}

// AccountHandler handles HTTP requests for /users endpoints.
type AccountHandler struct {
	service AccountService
	logger  *slog.Logger
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(svc AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=20,maxbytes=72"`
}

// UpdateAccountRequest is the JSON request body for a partial update.
type UpdateAccountRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Name     *string `json:"name" validate:"omitempty,min=3,max=50"`
	Password *string `json:"password" validate:"omitempty,min=6,max=20,maxbytes=72"`
}

// SetRolesRequest is the JSON request body for replacing roles.
type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,oneof=user admin"`
}

// --- Handlers ---

// Register handles POST /users
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	account, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, account)
}

// Me handles GET /users/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	account, err := h.service.Me(r.Context(), caller)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

// Get handles GET /users/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	account, err := h.service.Get(r.Context(), caller, id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

// Update handles PATCH /users/{id}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	account, err := h.service.Update(r.Context(), caller, id.String(), domain.AccountUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

// Delete handles DELETE /users/{id}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), caller, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /users
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// SetRoles handles PUT /users/{id}/roles
func (h *AccountHandler) SetRoles(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req SetRolesRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	account, err := h.service.SetRoles(r.Context(), caller, id.String(), req.Roles)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

// caller returns the principal attached by the gate, writing a 401 when
// there is none.
func (h *AccountHandler) caller(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthenticated(), h.logger)
		return nil, false
	}
	return p, true
}

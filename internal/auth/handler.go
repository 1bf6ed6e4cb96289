package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumen-cms/lumen-cms/internal/observability"
	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
	"github.com/lumen-cms/lumen-cms/internal/rbac"
	"github.com/lumen-cms/lumen-cms/internal/shared"
)

// Handler wires HTTP endpoints for registration, login and role assignment.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	roles     *rbac.Service
	authMW    Middleware
	metrics   *observability.Metrics
	validator *validator.Validate

	// PublicLimiter throttles the credential endpoints when set.
	PublicLimiter func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, roles *rbac.Service, authMW Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		roles:     roles,
		authMW:    authMW,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router. The requirement
// for each route is declared here, next to its handler, and enforced by the
// generic guard chain.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.PublicLimiter != nil {
			r.Use(h.PublicLimiter)
		}
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authMW.RequireAuth)
		r.Get("/profile", h.profile)

		r.Group(func(r chi.Router) {
			r.Use(rbac.RequireRole(rbac.RoleAdmin))
			r.Post("/assign-role", h.assignRole)
			r.Post("/remove-role", h.removeRole)
			r.Post("/admin/register-user", h.registerUserByAdmin)
		})
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.logger.Warn("register", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.metrics.RecordLogin("failure")
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordLogin("success")
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor := shared.ClaimsFromContext(r.Context())
	if err := h.roles.AssignRole(r.Context(), req.UserID, req.RoleID, actor); err != nil {
		h.logger.Warn("assign role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor := shared.ClaimsFromContext(r.Context())
	if err := h.roles.RemoveRole(r.Context(), req.UserID, req.RoleID, actor); err != nil {
		h.logger.Warn("remove role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) registerUserByAdmin(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor := shared.ClaimsFromContext(r.Context())
	user, err := h.service.RegisterUserByAdmin(r.Context(), req, actor)
	if err != nil {
		h.logger.Warn("register user by admin", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Profile(r.Context(), shared.ClaimsFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": user})
}

// decode parses and validates the JSON body, answering 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, fmt.Errorf("malformed body: %w", httpx.ErrValidation))
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, fmt.Errorf("%s: %w", err.Error(), httpx.ErrValidation))
		return false
	}
	return true
}

package images

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
	"github.com/lumen-cms/lumen-cms/internal/rbac"
	"github.com/lumen-cms/lumen-cms/internal/shared"
)

// 10 MiB upload cap, matching the original service limit.
const maxUploadBytes = 10 << 20

// Handler manages image endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers image routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(rbac.RequirePermission("create:Image"))
		r.Post("/", h.upload)
	})
	r.Group(func(r chi.Router) {
		r.Use(rbac.RequirePermission("read:Image"))
		r.Get("/", h.list)
		r.Get("/{id}/url", h.url)
	})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	claims := shared.ClaimsFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.RespondError(w, fmt.Errorf("multipart body: %w", httpx.ErrValidation))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("file field required: %w", httpx.ErrValidation))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	img, err := h.service.Upload(r.Context(), claims.CompanyID, claims.UserID(), header.Filename, contentType, header.Size, file)
	if err != nil {
		h.logger.Error("upload image", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, img)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	claims := shared.ClaimsFromContext(r.Context())
	images, err := h.service.List(r.Context(), claims.CompanyID)
	if err != nil {
		h.logger.Error("list images", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"images": images})
}

func (h *Handler) url(w http.ResponseWriter, r *http.Request) {
	claims := shared.ClaimsFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("invalid id: %w", httpx.ErrValidation))
		return
	}
	url, err := h.service.URL(r.Context(), claims.CompanyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}

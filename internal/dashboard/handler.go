package dashboard

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/costdesk/costdesk/internal/platform/httpx"
)

// Handler serves the dashboard and CCN report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/dashboard", h.overview)
	r.Get("/reports/ccn", h.ccnReport)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProject(w, r)
	if !ok {
		return
	}
	out, err := h.service.Overview(r.Context(), projectID)
	if err != nil {
		h.logger.Error("dashboard overview", slog.String("project_id", projectID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) ccnReport(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProject(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.CCNReport(r.Context(), projectID))
}

func requireProject(w http.ResponseWriter, r *http.Request) (string, bool) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		httpx.RespondError(w, fmt.Errorf("%w: project_id is required", httpx.ErrValidation))
		return "", false
	}
	return projectID, true
}

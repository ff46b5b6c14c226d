package estimation

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/costdesk/costdesk/internal/platform/httpx"
)

// Handler exposes the estimation store over JSON.
type Handler struct {
	logger   *slog.Logger
	store    *Store
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store *Store, validate *validator.Validate) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store, validate: validate}
}

// MountRoutes registers estimation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/estimations", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/totals", h.totals)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := r.URL.Query().Get("project_id")
	status := Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status "+string(status))
		return
	}

	var out []Estimation
	switch {
	case projectID != "":
		out = h.store.ListByProject(ctx, projectID)
	case status != "":
		out = h.store.ListByStatus(ctx, status)
	default:
		out = h.store.List(ctx)
	}
	if projectID != "" && status != "" {
		filtered := out[:0]
		for _, e := range out {
			if e.Status == status {
				filtered = append(filtered, e)
			}
		}
		out = filtered
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	est, err := h.store.Add(r.Context(), req.draft())
	if err != nil {
		h.logger.Error("create estimation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, est)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	est, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, est)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	est, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		h.logger.Warn("update estimation", slog.String("id", chi.URLParam(r, "id")), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, est)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.logger.Error("remove estimation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.store.TotalsByCostHead(r.Context()))
}

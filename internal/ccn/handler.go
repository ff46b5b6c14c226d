package ccn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/costdesk/costdesk/internal/platform/httpx"
	"github.com/costdesk/costdesk/internal/shared"
)

// ApprovalHistory reads recorded approval decisions.
type ApprovalHistory interface {
	List(ctx context.Context, module, ref string) ([]shared.ApprovalLog, error)
}

// Handler exposes the CCN store and its approval workflow over JSON.
type Handler struct {
	logger   *slog.Logger
	store    *Store
	validate *validator.Validate
	history  ApprovalHistory
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store *Store, validate *validator.Validate) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store, validate: validate}
}

// WithApprovalHistory enables GET /ccns/{id}/approvals.
func (h *Handler) WithApprovalHistory(history ApprovalHistory) *Handler {
	h.history = history
	return h
}

// MountRoutes registers CCN routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ccns", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/summary", h.summary)
		r.Get("/impact", h.impact)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.remove)
		r.Post("/{id}/submit", h.submit)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
		r.Get("/{id}/approvals", h.approvals)
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

	var out []CostChangeNote
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
		for _, n := range out {
			if n.Status == status {
				filtered = append(filtered, n)
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
	n, err := h.store.Add(r.Context(), req.draft())
	if err != nil {
		h.logger.Error("create ccn", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, n)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.logger.Error("remove ccn", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDecision(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.store.Submit(r.Context(), chi.URLParam(r, "id"), req.Actor)
	h.respondDecision(w, "submit", n, err)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDecision(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if strings.TrimSpace(req.Actor) == "" {
		httpx.RespondError(w, fmt.Errorf("%w: actor is required to approve", httpx.ErrValidation))
		return
	}
	n, err := h.store.Approve(r.Context(), chi.URLParam(r, "id"), req.Actor)
	h.respondDecision(w, "approve", n, err)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDecision(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.store.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason)
	h.respondDecision(w, "reject", n, err)
}

func (h *Handler) approvals(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "approval history is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.store.Get(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	logs, err := h.history.List(r.Context(), ApprovalModule, id)
	if err != nil {
		h.logger.Error("list ccn approvals", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if logs == nil {
		logs = []shared.ApprovalLog{}
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) respondDecision(w http.ResponseWriter, action string, n CostChangeNote, err error) {
	if err != nil {
		h.logger.Warn("ccn "+action, slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.store.Summary(r.Context()))
}

func (h *Handler) impact(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		httpx.RespondError(w, fmt.Errorf("%w: project_id is required", httpx.ErrValidation))
		return
	}
	httpx.JSON(w, http.StatusOK, h.store.BudgetImpact(r.Context(), projectID))
}

// decodeDecision reads an optional decision body.
func decodeDecision(r *http.Request) (DecisionRequest, error) {
	var req DecisionRequest
	if r.Body == nil {
		return req, nil
	}
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("%w: decode body: %v", httpx.ErrValidation, err)
	}
	return req, nil
}

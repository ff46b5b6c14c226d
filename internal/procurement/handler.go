package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/costdesk/costdesk/internal/estimation"
	"github.com/costdesk/costdesk/internal/platform/httpx"
)

// EstimationSource resolves estimations referenced by purchase orders.
type EstimationSource interface {
	Get(ctx context.Context, id string) (estimation.Estimation, error)
}

// Handler manages purchase order endpoints.
type Handler struct {
	logger      *slog.Logger
	store       *Store
	estimations EstimationSource
	validate    *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store *Store, estimations EstimationSource, validate *validator.Validate) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store, estimations: estimations, validate: validate}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/from-estimation/{id}", h.createFromEstimation)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.remove)
		r.Post("/{id}/submit", h.submit)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/cancel", h.cancel)
	})
}

type itemRequest struct {
	EstimationItemID string  `json:"estimationItemId,omitempty"`
	EstimationRef    string  `json:"estimationRef,omitempty"`
	Description      string  `json:"description" validate:"required"`
	Quantity         float64 `json:"quantity" validate:"gt=0"`
	Unit             string  `json:"unit"`
	UnitCost         float64 `json:"unitCost" validate:"gte=0"`
	TotalCost        float64 `json:"totalCost,omitempty"`
	CostHead         string  `json:"costHead" validate:"required,costhead"`
}

type createRequest struct {
	PONumber     string        `json:"poNumber"`
	ProjectID    string        `json:"projectId" validate:"required"`
	Vendor       string        `json:"vendor" validate:"required"`
	DeliveryDate string        `json:"deliveryDate" validate:"required,datetime=2006-01-02"`
	Terms        string        `json:"terms"`
	Items        []itemRequest `json:"items" validate:"required,min=1,dive"`
	Notes        string        `json:"notes"`
}

type updateRequest struct {
	Vendor       *string        `json:"vendor,omitempty" validate:"omitempty,min=1"`
	DeliveryDate *string        `json:"deliveryDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Terms        *string        `json:"terms,omitempty"`
	Items        *[]itemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	Notes        *string        `json:"notes,omitempty"`
}

type fromEstimationRequest struct {
	PONumber     string `json:"poNumber"`
	Vendor       string `json:"vendor"`
	DeliveryDate string `json:"deliveryDate" validate:"required,datetime=2006-01-02"`
	Terms        string `json:"terms"`
	Notes        string `json:"notes"`
}

type approveRequest struct {
	ApprovedBy string `json:"approvedBy" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if projectID := r.URL.Query().Get("project_id"); projectID != "" {
		httpx.JSON(w, http.StatusOK, h.store.ListByProject(r.Context(), projectID))
		return
	}
	httpx.JSON(w, http.StatusOK, h.store.List(r.Context()))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := h.store.Create(r.Context(), Draft{
		PONumber:     req.PONumber,
		ProjectID:    req.ProjectID,
		Vendor:       req.Vendor,
		DeliveryDate: req.DeliveryDate,
		Terms:        req.Terms,
		Items:        toItems(req.Items),
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(w, "create purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) createFromEstimation(w http.ResponseWriter, r *http.Request) {
	var req fromEstimationRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	est, err := h.estimations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	vendor := strings.TrimSpace(req.Vendor)
	if vendor == "" {
		vendor = est.Vendor
	}
	po, err := h.store.Create(r.Context(), Draft{
		PONumber:     req.PONumber,
		ProjectID:    est.ProjectID,
		Vendor:       vendor,
		DeliveryDate: req.DeliveryDate,
		Terms:        req.Terms,
		Items:        ItemsFromEstimation(est),
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(w, "create purchase order from estimation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	po, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	patch := Patch{Vendor: req.Vendor, DeliveryDate: req.DeliveryDate, Terms: req.Terms, Notes: req.Notes}
	if req.Items != nil {
		items := toItems(*req.Items)
		patch.Items = &items
	}
	po, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, "update purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "remove purchase order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	po, err := h.store.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "submit purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := h.store.Approve(r.Context(), chi.URLParam(r, "id"), req.ApprovedBy)
	if err != nil {
		h.respondError(w, "approve purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	po, err := h.store.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "cancel purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNoItems) {
		err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func toItems(in []itemRequest) []Item {
	out := make([]Item, 0, len(in))
	for _, it := range in {
		out = append(out, Item{
			EstimationItemID: it.EstimationItemID,
			EstimationRef:    it.EstimationRef,
			Description:      it.Description,
			Quantity:         it.Quantity,
			Unit:             it.Unit,
			UnitCost:         it.UnitCost,
			CostHead:         it.CostHead,
		})
	}
	return out
}

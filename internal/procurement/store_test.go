package procurement

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costdesk/costdesk/internal/estimation"
	"github.com/costdesk/costdesk/internal/shared"
	"github.com/costdesk/costdesk/internal/storage"
)

var testNow = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, backend storage.Backend) *Store {
	t.Helper()
	s := NewStore(t.Context(), backend, discardLogger())
	s.now = func() time.Time { return testNow }
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("PO-%d", n)
	}
	return s
}

func sampleDraft() Draft {
	return Draft{
		ProjectID:    "P1",
		Vendor:       "ABC Suppliers",
		DeliveryDate: "2024-07-01",
		Items: []Item{
			{Description: "Cement", Quantity: 100, UnitCost: 450, TotalCost: 1, CostHead: "OM01 - Material Cost"},
			{Description: "Mason", Quantity: 10, UnitCost: 800, CostHead: "OM02 - Manpower Cost"},
		},
	}
}

func TestCreatePricesLines(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	po, err := s.Create(t.Context(), sampleDraft())
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, po.Status)
	assert.Equal(t, 45000.0, po.Items[0].TotalCost)
	assert.Equal(t, 53000.0, po.TotalValue)
	assert.Equal(t, "PO-1718006400000", po.PONumber)

	_, err = s.Create(t.Context(), Draft{ProjectID: "P1"})
	require.ErrorIs(t, err, ErrNoItems)
}

func TestLifecycleGuards(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	po, err := s.Create(t.Context(), sampleDraft())
	require.NoError(t, err)

	_, err = s.Approve(t.Context(), po.ID, "pm")
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = s.Submit(t.Context(), po.ID)
	require.NoError(t, err)
	vendor := "Other"
	_, err = s.Update(t.Context(), po.ID, Patch{Vendor: &vendor})
	require.ErrorIs(t, err, ErrInvalidState)

	approved, err := s.Approve(t.Context(), po.ID, "pm")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)

	_, err = s.Cancel(t.Context(), po.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	other, err := s.Create(t.Context(), sampleDraft())
	require.NoError(t, err)
	cancelled, err := s.Cancel(t.Context(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = s.Submit(t.Context(), "PO-missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCommittedByCostHeadUsesApprovedOnly(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	approved, err := s.Create(t.Context(), sampleDraft())
	require.NoError(t, err)
	_, err = s.Submit(t.Context(), approved.ID)
	require.NoError(t, err)
	_, err = s.Approve(t.Context(), approved.ID, "pm")
	require.NoError(t, err)

	pending, err := s.Create(t.Context(), sampleDraft())
	require.NoError(t, err)
	_, err = s.Submit(t.Context(), pending.ID)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"MATERIAL COST": 45000,
		"MANPOWER COST": 8000,
	}, s.CommittedByCostHead(t.Context()))
}

func TestItemsFromEstimation(t *testing.T) {
	est := estimation.Estimation{
		ID:       "EST-9",
		CostHead: "OM04 - Equipment Cost",
		Items: []estimation.Item{
			{ID: "ITEM-1", Description: "Excavator hire", Quantity: 5, Unit: "day", UnitCost: 2000},
			{ID: "ITEM-2", Description: "Fuel", Quantity: 100, Unit: "l", UnitCost: 1.5, CostHead: "OM05 - Transportation Cost"},
		},
	}
	items := ItemsFromEstimation(est)
	require.Len(t, items, 2)
	assert.Equal(t, Item{
		EstimationItemID: "ITEM-1",
		EstimationRef:    "EST-9",
		Description:      "Excavator hire",
		Quantity:         5,
		Unit:             "day",
		UnitCost:         2000,
		TotalCost:        10000,
		CostHead:         "OM04 - Equipment Cost",
	}, items[0])
	assert.Equal(t, "OM05 - Transportation Cost", items[1].CostHead)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	po, err := s.Create(t.Context(), sampleDraft())
	require.NoError(t, err)
	require.NoError(t, s.Remove(t.Context(), po.ID))
	require.NoError(t, s.Remove(t.Context(), po.ID))
	assert.Empty(t, s.List(t.Context()))
}

func TestCreateFromEstimationEndpoint(t *testing.T) {
	estimations := estimation.NewStore(t.Context(), storage.NewMemory(), discardLogger())
	est, err := estimations.Add(t.Context(), estimation.Draft{
		ProjectID: "P3",
		CostHead:  "OM01 - Material Cost",
		Vendor:    "XYZ Materials",
		Status:    estimation.StatusApproved,
		Items:     []estimation.Item{{Description: "Steel", Quantity: 2, UnitCost: 65000, CostHead: "OM01 - Material Cost"}},
	})
	require.NoError(t, err)

	store := newTestStore(t, storage.NewMemory())
	r := chi.NewRouter()
	NewHandler(discardLogger(), store, estimations, shared.NewValidator()).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/purchase-orders/from-estimation/"+est.ID, strings.NewReader(`{"deliveryDate":"2024-08-01"}`)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var po PurchaseOrder
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &po))
	assert.Equal(t, "P3", po.ProjectID)
	assert.Equal(t, "XYZ Materials", po.Vendor)
	assert.Equal(t, 130000.0, po.TotalValue)
	assert.Equal(t, est.ID, po.Items[0].EstimationRef)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/purchase-orders/from-estimation/EST-none", strings.NewReader(`{"deliveryDate":"2024-08-01"}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerStatusMapping(t *testing.T) {
	store := newTestStore(t, storage.NewMemory())
	r := chi.NewRouter()
	NewHandler(discardLogger(), store, nil, shared.NewValidator()).MountRoutes(r)
	serve := func(method, target, body string) int {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(method, target, strings.NewReader(body)))
		return rr.Code
	}

	assert.Equal(t, http.StatusBadRequest, serve(http.MethodPost, "/purchase-orders", `{"projectId":"P1","vendor":"V","deliveryDate":"2024-07-01","items":[]}`))
	assert.Equal(t, http.StatusCreated, serve(http.MethodPost, "/purchase-orders", `{"projectId":"P1","vendor":"V","deliveryDate":"2024-07-01","items":[{"description":"Bricks","quantity":1000,"unitCost":8,"costHead":"OM01 - Material Cost"}]}`))

	po := store.List(t.Context())[0]
	assert.Equal(t, http.StatusBadRequest, serve(http.MethodPost, "/purchase-orders/"+po.ID+"/approve", `{}`))
	assert.Equal(t, http.StatusConflict, serve(http.MethodPost, "/purchase-orders/"+po.ID+"/approve", `{"approvedBy":"pm"}`))
	assert.Equal(t, http.StatusOK, serve(http.MethodPost, "/purchase-orders/"+po.ID+"/submit", ""))
	assert.Equal(t, http.StatusOK, serve(http.MethodPost, "/purchase-orders/"+po.ID+"/approve", `{"approvedBy":"pm"}`))
	assert.Equal(t, http.StatusNotFound, serve(http.MethodPost, "/purchase-orders/PO-zzz/cancel", ""))
}

package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/costdesk/costdesk/internal/costhead"
	"github.com/costdesk/costdesk/internal/estimation"
	"github.com/costdesk/costdesk/internal/storage"
)

// Store owns the purchase order collection.
type Store struct {
	mu     sync.RWMutex
	items  []PurchaseOrder
	coll   *storage.Collection[PurchaseOrder]
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewStore loads the persisted purchase orders from backend.
func NewStore(ctx context.Context, backend storage.Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		coll:   storage.NewCollection[PurchaseOrder](backend, storage.KeyPurchaseOrders, logger),
		logger: logger,
		now:    time.Now,
		newID:  func() string { return "PO-" + uuid.NewString() },
	}
	// An unreachable backend at startup leaves the store empty; Reload retries.
	s.items, _ = s.coll.Load(ctx)
	return s
}

// Reload replaces the in-memory collection with the persisted one. On a
// backend error the current items are kept.
func (s *Store) Reload(ctx context.Context) error {
	items, err := s.coll.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// ItemsFromEstimation turns estimation lines into purchase order lines that
// keep a reference to their source.
func ItemsFromEstimation(est estimation.Estimation) []Item {
	out := make([]Item, 0, len(est.Items))
	for _, it := range est.Items {
		head := it.CostHead
		if head == "" {
			head = est.CostHead
		}
		out = append(out, Item{
			EstimationItemID: it.ID,
			EstimationRef:    est.ID,
			Description:      it.Description,
			Quantity:         it.Quantity,
			Unit:             it.Unit,
			UnitCost:         it.UnitCost,
			TotalCost:        it.Quantity * it.UnitCost,
			CostHead:         head,
		})
	}
	return out
}

// Create stores a new draft purchase order.
func (s *Store) Create(ctx context.Context, draft Draft) (PurchaseOrder, error) {
	if len(draft.Items) == 0 {
		return PurchaseOrder{}, ErrNoItems
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	po := PurchaseOrder{
		ID:           s.newID(),
		PONumber:     draft.PONumber,
		ProjectID:    draft.ProjectID,
		Vendor:       draft.Vendor,
		DeliveryDate: draft.DeliveryDate,
		Terms:        draft.Terms,
		Status:       StatusDraft,
		Items:        priceItems(draft.Items),
		Notes:        draft.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if po.PONumber == "" {
		po.PONumber = generateNumber("PO", now)
	}
	po.TotalValue = sumItems(po.Items)

	next := append(slices.Clip(s.items), po)
	if err := s.commit(ctx, next); err != nil {
		return PurchaseOrder{}, fmt.Errorf("procurement: create: %w", err)
	}
	s.logger.Debug("purchase order created", slog.String("id", po.ID), slog.String("po_number", po.PONumber))
	return clone(po), nil
}

// Update edits a draft purchase order.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (PurchaseOrder, error) {
	return s.mutate(ctx, "update", id, func(po *PurchaseOrder) error {
		if po.Status != StatusDraft {
			return ErrInvalidState
		}
		if patch.Vendor != nil {
			po.Vendor = *patch.Vendor
		}
		if patch.DeliveryDate != nil {
			po.DeliveryDate = *patch.DeliveryDate
		}
		if patch.Terms != nil {
			po.Terms = *patch.Terms
		}
		if patch.Notes != nil {
			po.Notes = *patch.Notes
		}
		if patch.Items != nil {
			if len(*patch.Items) == 0 {
				return ErrNoItems
			}
			po.Items = priceItems(*patch.Items)
			po.TotalValue = sumItems(po.Items)
		}
		return nil
	})
}

// Submit sends a draft purchase order for approval.
func (s *Store) Submit(ctx context.Context, id string) (PurchaseOrder, error) {
	return s.mutate(ctx, "submit", id, func(po *PurchaseOrder) error {
		if po.Status != StatusDraft {
			return ErrInvalidState
		}
		po.Status = StatusSubmitted
		return nil
	})
}

// Approve approves a submitted purchase order.
func (s *Store) Approve(ctx context.Context, id, approvedBy string) (PurchaseOrder, error) {
	return s.mutate(ctx, "approve", id, func(po *PurchaseOrder) error {
		if po.Status != StatusSubmitted {
			return ErrInvalidState
		}
		at := s.now().UTC()
		po.Status = StatusApproved
		po.ApprovedBy = approvedBy
		po.ApprovedAt = &at
		return nil
	})
}

// Cancel cancels a draft or submitted purchase order.
func (s *Store) Cancel(ctx context.Context, id string) (PurchaseOrder, error) {
	return s.mutate(ctx, "cancel", id, func(po *PurchaseOrder) error {
		if po.Status != StatusDraft && po.Status != StatusSubmitted {
			return ErrInvalidState
		}
		po.Status = StatusCancelled
		return nil
	})
}

// Remove deletes the purchase order with id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return nil
	}
	next := slices.DeleteFunc(slices.Clone(s.items), func(po PurchaseOrder) bool { return po.ID == id })
	if err := s.commit(ctx, next); err != nil {
		return fmt.Errorf("procurement: remove: %w", err)
	}
	return nil
}

// Get returns the purchase order with id.
func (s *Store) Get(ctx context.Context, id string) (PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return PurchaseOrder{}, ErrNotFound
	}
	return clone(s.items[idx]), nil
}

// List returns every purchase order in insertion order.
func (s *Store) List(ctx context.Context) []PurchaseOrder {
	return s.filter(func(PurchaseOrder) bool { return true })
}

// ListByProject returns the purchase orders of a project in insertion order.
func (s *Store) ListByProject(ctx context.Context, projectID string) []PurchaseOrder {
	return s.filter(func(po PurchaseOrder) bool { return po.ProjectID == projectID })
}

// CommittedByCostHead sums line totals of approved purchase orders per cost-head label.
func (s *Store) CommittedByCostHead(ctx context.Context) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]float64)
	for _, po := range s.items {
		if po.Status != StatusApproved {
			continue
		}
		for _, it := range po.Items {
			totals[costhead.Label(it.CostHead)] += it.TotalCost
		}
	}
	return totals
}

func (s *Store) mutate(ctx context.Context, op, id string, apply func(*PurchaseOrder) error) (PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return PurchaseOrder{}, ErrNotFound
	}
	po := clone(s.items[idx])
	if err := apply(&po); err != nil {
		return PurchaseOrder{}, err
	}
	po.UpdatedAt = s.now().UTC()

	next := slices.Clone(s.items)
	next[idx] = po
	if err := s.commit(ctx, next); err != nil {
		return PurchaseOrder{}, fmt.Errorf("procurement: %s: %w", op, err)
	}
	return clone(po), nil
}

func (s *Store) filter(keep func(PurchaseOrder) bool) []PurchaseOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PurchaseOrder, 0, len(s.items))
	for _, po := range s.items {
		if keep(po) {
			out = append(out, clone(po))
		}
	}
	return out
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(po PurchaseOrder) bool { return po.ID == id })
}

func (s *Store) commit(ctx context.Context, next []PurchaseOrder) error {
	if err := s.coll.Save(ctx, next); err != nil {
		return err
	}
	s.items = next
	return nil
}

func priceItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		it.TotalCost = it.Quantity * it.UnitCost
		out[i] = it
	}
	return out
}

func sumItems(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.TotalCost
	}
	return total
}

func clone(po PurchaseOrder) PurchaseOrder {
	po.Items = append([]Item(nil), po.Items...)
	if po.Items == nil {
		po.Items = []Item{}
	}
	if po.ApprovedAt != nil {
		at := *po.ApprovedAt
		po.ApprovedAt = &at
	}
	return po
}

func generateNumber(prefix string, at time.Time) string {
	return prefix + "-" + strconv.FormatInt(at.UnixMilli(), 10)
}

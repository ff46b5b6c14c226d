package estimation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/costdesk/costdesk/internal/costhead"
	"github.com/costdesk/costdesk/internal/storage"
)

// Store owns the estimation collection and persists it through a storage backend.
type Store struct {
	mu     sync.RWMutex
	items  []Estimation
	coll   *storage.Collection[Estimation]
	logger *slog.Logger
	now    func() time.Time
	newID  func(prefix string) string
}

// NewStore loads the persisted collection from backend.
func NewStore(ctx context.Context, backend storage.Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		coll:   storage.NewCollection[Estimation](backend, storage.KeyEstimations, logger),
		logger: logger,
		now:    time.Now,
		newID:  func(prefix string) string { return prefix + uuid.NewString() },
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

// Add creates an estimation from draft. The draft is never modified.
func (s *Store) Add(ctx context.Context, draft Draft) (Estimation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	status := draft.Status
	if status == "" {
		status = StatusDraft
	}
	items := priceItems(draft.Items, func() string { return s.newID("ITEM-") })
	est := Estimation{
		ID:          s.newID("EST-"),
		ProjectID:   draft.ProjectID,
		CostHead:    draft.CostHead,
		Category:    draft.Category,
		Vendor:      draft.Vendor,
		EstimatedBy: draft.EstimatedBy,
		Items:       items,
		Notes:       draft.Notes,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
		TotalAmount: sumItems(items),
	}

	next := append(slices.Clip(s.items), est)
	if err := s.commit(ctx, next); err != nil {
		return Estimation{}, fmt.Errorf("estimation: add: %w", err)
	}
	s.logger.Debug("estimation added", slog.String("id", est.ID), slog.String("project_id", est.ProjectID))
	return clone(est), nil
}

// Update merges patch into the estimation with id. The total is recomputed
// only when patch carries items.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (Estimation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Estimation{}, ErrNotFound
	}
	est := clone(s.items[idx])
	if patch.ProjectID != nil {
		est.ProjectID = *patch.ProjectID
	}
	if patch.CostHead != nil {
		est.CostHead = *patch.CostHead
	}
	if patch.Category != nil {
		est.Category = *patch.Category
	}
	if patch.Vendor != nil {
		est.Vendor = *patch.Vendor
	}
	if patch.EstimatedBy != nil {
		est.EstimatedBy = *patch.EstimatedBy
	}
	if patch.Notes != nil {
		est.Notes = *patch.Notes
	}
	if patch.Status != nil {
		est.Status = *patch.Status
	}
	if patch.Items != nil {
		est.Items = priceItems(*patch.Items, func() string { return s.newID("ITEM-") })
		est.TotalAmount = sumItems(est.Items)
	}
	est.UpdatedAt = s.now().UTC()

	next := slices.Clone(s.items)
	next[idx] = est
	if err := s.commit(ctx, next); err != nil {
		return Estimation{}, fmt.Errorf("estimation: update: %w", err)
	}
	return clone(est), nil
}

// Remove deletes the estimation with id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return nil
	}
	next := slices.DeleteFunc(slices.Clone(s.items), func(e Estimation) bool { return e.ID == id })
	if err := s.commit(ctx, next); err != nil {
		return fmt.Errorf("estimation: remove: %w", err)
	}
	return nil
}

// Get returns the estimation with id.
func (s *Store) Get(ctx context.Context, id string) (Estimation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Estimation{}, ErrNotFound
	}
	return clone(s.items[idx]), nil
}

// List returns every estimation in insertion order.
func (s *Store) List(ctx context.Context) []Estimation {
	return s.filter(func(Estimation) bool { return true })
}

// ListByProject returns the estimations of a project in insertion order.
func (s *Store) ListByProject(ctx context.Context, projectID string) []Estimation {
	return s.filter(func(e Estimation) bool { return e.ProjectID == projectID })
}

// ListByStatus returns the estimations currently in status.
func (s *Store) ListByStatus(ctx context.Context, status Status) []Estimation {
	return s.filter(func(e Estimation) bool { return e.Status == status })
}

// TotalsByCostHead sums submitted and approved estimations per cost-head label.
// Drafts and rejected estimations never contribute.
func (s *Store) TotalsByCostHead(ctx context.Context) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]float64)
	for _, e := range s.items {
		if !e.Status.counted() {
			continue
		}
		totals[costhead.Label(e.CostHead)] += e.TotalAmount
	}
	return totals
}

func (s *Store) filter(keep func(Estimation) bool) []Estimation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Estimation, 0, len(s.items))
	for _, e := range s.items {
		if keep(e) {
			out = append(out, clone(e))
		}
	}
	return out
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(e Estimation) bool { return e.ID == id })
}

// commit persists next and swaps it in. On failure the current collection is kept.
func (s *Store) commit(ctx context.Context, next []Estimation) error {
	if err := s.coll.Save(ctx, next); err != nil {
		return err
	}
	s.items = next
	return nil
}

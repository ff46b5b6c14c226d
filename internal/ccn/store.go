package ccn

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/costdesk/costdesk/internal/shared"
	"github.com/costdesk/costdesk/internal/storage"
)

// Decision is handed to a DecisionNotifier after an approve or reject.
type Decision struct {
	Note   CostChangeNote
	Status Status
	Actor  string
	Reason string
}

// DecisionNotifier is told about approval decisions.
type DecisionNotifier interface {
	NotifyDecision(ctx context.Context, d Decision) error
}

// ApprovalRecorder keeps an approval history.
type ApprovalRecorder interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// ApprovalModule is the module name CCN decisions are recorded under.
const ApprovalModule = "ccn"

// Option configures a Store.
type Option func(*Store)

// WithNotifier registers a decision notifier.
func WithNotifier(n DecisionNotifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithApprovalRecorder registers an approval history recorder.
func WithApprovalRecorder(r ApprovalRecorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithTransitionGuard toggles status transition checks on submit, approve and reject.
func WithTransitionGuard(enforce bool) Option {
	return func(s *Store) { s.enforce = enforce }
}

// Store owns the cost change note collection.
type Store struct {
	mu       sync.RWMutex
	items    []CostChangeNote
	coll     *storage.Collection[CostChangeNote]
	logger   *slog.Logger
	notifier DecisionNotifier
	recorder ApprovalRecorder
	enforce  bool
	now      func() time.Time
	newID    func(prefix string) string
}

// NewStore loads the persisted notes from backend. The transition guard is on
// unless disabled with WithTransitionGuard(false).
func NewStore(ctx context.Context, backend storage.Backend, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		coll:    storage.NewCollection[CostChangeNote](backend, storage.KeyCostChangeNotes, logger),
		logger:  logger,
		enforce: true,
		now:     time.Now,
		newID:   func(prefix string) string { return prefix + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
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

// Add creates a note from draft, deriving item variances and totals.
func (s *Store) Add(ctx context.Context, draft Draft) (CostChangeNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	n := CostChangeNote{
		ID:               s.newID("CCN-"),
		CCNNumber:        draft.CCNNumber,
		ProjectID:        draft.ProjectID,
		ChangeType:       draft.ChangeType,
		Category:         draft.Category,
		InitiatedBy:      draft.InitiatedBy,
		Reason:           draft.Reason,
		Justification:    draft.Justification,
		Items:            deriveItems(draft.Items, func() string { return s.newID("CCNI-") }),
		Attachments:      append([]string{}, draft.Attachments...),
		Status:           draft.Status,
		ApprovalRequired: draft.ApprovalRequired,
		Urgency:          draft.Urgency,
		EffectiveDate:    draft.EffectiveDate,
		Notes:            draft.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if n.CCNNumber == "" {
		n.CCNNumber = "CCN-" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	if n.Status == "" {
		n.Status = StatusDraft
	}
	if n.Urgency == "" {
		n.Urgency = UrgencyMedium
	}
	applyTotals(&n)

	next := append(slices.Clip(s.items), n)
	if err := s.commit(ctx, next); err != nil {
		return CostChangeNote{}, fmt.Errorf("ccn: add: %w", err)
	}
	s.logger.Debug("ccn added", slog.String("id", n.ID), slog.String("ccn_number", n.CCNNumber))
	return clone(n), nil
}

// Update merges patch into the note with id. Totals are recomputed only when
// patch carries items.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (CostChangeNote, error) {
	return s.mutate(ctx, "update", id, func(n *CostChangeNote) error {
		if patch.ProjectID != nil {
			n.ProjectID = *patch.ProjectID
		}
		if patch.ChangeType != nil {
			n.ChangeType = *patch.ChangeType
		}
		if patch.Category != nil {
			n.Category = *patch.Category
		}
		if patch.InitiatedBy != nil {
			n.InitiatedBy = *patch.InitiatedBy
		}
		if patch.Reason != nil {
			n.Reason = *patch.Reason
		}
		if patch.Justification != nil {
			n.Justification = *patch.Justification
		}
		if patch.Attachments != nil {
			n.Attachments = append([]string{}, (*patch.Attachments)...)
		}
		if patch.Status != nil {
			n.Status = *patch.Status
		}
		if patch.ApprovalRequired != nil {
			n.ApprovalRequired = *patch.ApprovalRequired
		}
		if patch.Urgency != nil {
			n.Urgency = *patch.Urgency
		}
		if patch.EffectiveDate != nil {
			n.EffectiveDate = *patch.EffectiveDate
		}
		if patch.Notes != nil {
			n.Notes = *patch.Notes
		}
		if patch.Items != nil {
			n.Items = deriveItems(*patch.Items, func() string { return s.newID("CCNI-") })
			applyTotals(n)
		}
		return nil
	})
}

// Submit moves a draft note to submitted.
func (s *Store) Submit(ctx context.Context, id, actor string) (CostChangeNote, error) {
	n, err := s.mutate(ctx, "submit", id, func(n *CostChangeNote) error {
		if s.enforce && n.Status != StatusDraft {
			return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, n.Status)
		}
		n.Status = StatusSubmitted
		return nil
	})
	if err != nil {
		return CostChangeNote{}, err
	}
	s.record(ctx, n, shared.ApprovalSubmit, actor, "")
	return n, nil
}

// Approve marks the note approved and stamps approver and time.
func (s *Store) Approve(ctx context.Context, id, approvedBy string) (CostChangeNote, error) {
	n, err := s.mutate(ctx, "approve", id, func(n *CostChangeNote) error {
		if s.enforce && !n.Status.pending() {
			return fmt.Errorf("%w: approve from %s", ErrInvalidTransition, n.Status)
		}
		at := s.now().UTC()
		n.Status = StatusApproved
		n.ApprovedBy = approvedBy
		n.ApprovedAt = &at
		return nil
	})
	if err != nil {
		return CostChangeNote{}, err
	}
	s.record(ctx, n, shared.ApprovalApprove, approvedBy, "")
	s.notify(ctx, Decision{Note: n, Status: StatusApproved, Actor: approvedBy})
	return n, nil
}

// Reject marks the note rejected with reason.
func (s *Store) Reject(ctx context.Context, id, reason string) (CostChangeNote, error) {
	n, err := s.mutate(ctx, "reject", id, func(n *CostChangeNote) error {
		if s.enforce && !n.Status.pending() {
			return fmt.Errorf("%w: reject from %s", ErrInvalidTransition, n.Status)
		}
		n.Status = StatusRejected
		n.RejectionReason = reason
		return nil
	})
	if err != nil {
		return CostChangeNote{}, err
	}
	s.record(ctx, n, shared.ApprovalReject, "", reason)
	s.notify(ctx, Decision{Note: n, Status: StatusRejected, Reason: reason})
	return n, nil
}

// Remove deletes the note with id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return nil
	}
	next := slices.DeleteFunc(slices.Clone(s.items), func(n CostChangeNote) bool { return n.ID == id })
	if err := s.commit(ctx, next); err != nil {
		return fmt.Errorf("ccn: remove: %w", err)
	}
	return nil
}

// Get returns the note with id.
func (s *Store) Get(ctx context.Context, id string) (CostChangeNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return CostChangeNote{}, ErrNotFound
	}
	return clone(s.items[idx]), nil
}

// List returns every note in insertion order.
func (s *Store) List(ctx context.Context) []CostChangeNote {
	return s.filter(func(CostChangeNote) bool { return true })
}

// ListByProject returns the notes of a project in insertion order.
func (s *Store) ListByProject(ctx context.Context, projectID string) []CostChangeNote {
	return s.filter(func(n CostChangeNote) bool { return n.ProjectID == projectID })
}

// ListByStatus returns the notes currently in status.
func (s *Store) ListByStatus(ctx context.Context, status Status) []CostChangeNote {
	return s.filter(func(n CostChangeNote) bool { return n.Status == status })
}

func (s *Store) mutate(ctx context.Context, op, id string, apply func(*CostChangeNote) error) (CostChangeNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return CostChangeNote{}, ErrNotFound
	}
	n := clone(s.items[idx])
	if err := apply(&n); err != nil {
		return CostChangeNote{}, err
	}
	n.UpdatedAt = s.now().UTC()

	next := slices.Clone(s.items)
	next[idx] = n
	if err := s.commit(ctx, next); err != nil {
		return CostChangeNote{}, fmt.Errorf("ccn: %s: %w", op, err)
	}
	return clone(n), nil
}

func (s *Store) filter(keep func(CostChangeNote) bool) []CostChangeNote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CostChangeNote, 0, len(s.items))
	for _, n := range s.items {
		if keep(n) {
			out = append(out, clone(n))
		}
	}
	return out
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(n CostChangeNote) bool { return n.ID == id })
}

// commit persists next and swaps it in. On failure the current collection is kept.
func (s *Store) commit(ctx context.Context, next []CostChangeNote) error {
	if err := s.coll.Save(ctx, next); err != nil {
		return err
	}
	s.items = next
	return nil
}

func (s *Store) record(ctx context.Context, n CostChangeNote, action shared.ApprovalAction, actor, note string) {
	if s.recorder == nil {
		return
	}
	if actor == "" {
		actor = "system"
	}
	entry := shared.ApprovalLog{
		Module: ApprovalModule,
		RefID:  n.ID,
		Actor:  actor,
		Action: action,
		Note:   note,
		At:     n.UpdatedAt,
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.Warn("record ccn approval", slog.String("id", n.ID), slog.String("action", string(action)), slog.Any("error", err))
	}
}

func (s *Store) notify(ctx context.Context, d Decision) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyDecision(ctx, d); err != nil {
		s.logger.Warn("notify ccn decision", slog.String("id", d.Note.ID), slog.String("status", string(d.Status)), slog.Any("error", err))
	}
}

package ccn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costdesk/costdesk/internal/shared"
	"github.com/costdesk/costdesk/internal/storage"
)

var fixedNow = time.Date(2024, 4, 2, 10, 30, 0, 0, time.UTC)

type failingBackend struct {
	storage.Backend
	fail     bool
	failLoad bool
}

func (f *failingBackend) Load(ctx context.Context, key string) ([]byte, error) {
	if f.failLoad {
		return nil, errors.New("read refused")
	}
	return f.Backend.Load(ctx, key)
}

func (f *failingBackend) Save(ctx context.Context, key string, payload []byte) error {
	if f.fail {
		return errors.New("write refused")
	}
	return f.Backend.Save(ctx, key, payload)
}

type recordingNotifier struct {
	decisions []Decision
	err       error
}

func (r *recordingNotifier) NotifyDecision(_ context.Context, d Decision) error {
	r.decisions = append(r.decisions, d)
	return r.err
}

type recordingRecorder struct {
	logs []shared.ApprovalLog
}

func (r *recordingRecorder) Record(_ context.Context, log shared.ApprovalLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordingRecorder) List(_ context.Context, module, ref string) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, l := range r.logs {
		if l.Module == module && l.RefID == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

func newTestStore(t *testing.T, backend storage.Backend, opts ...Option) *Store {
	t.Helper()
	s := NewStore(t.Context(), backend, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	seq := 0
	s.newID = func(prefix string) string {
		seq++
		return fmt.Sprintf("%s%d", prefix, seq)
	}
	s.now = func() time.Time { return fixedNow }
	return s
}

func addNote(t *testing.T, s *Store, project string, status Status, items ...Item) CostChangeNote {
	t.Helper()
	n, err := s.Add(t.Context(), Draft{ProjectID: project, ChangeType: ChangeIncrease, Category: CategoryMaterial, Status: status, Items: items})
	require.NoError(t, err)
	return n
}

func TestAddDerivesItemVariance(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	n := addNote(t, s, "P1", StatusDraft,
		Item{ItemDescription: "rebar", OriginalCost: 400, RevisedCost: 500, Variance: 1, VariancePercent: 1},
		Item{ItemDescription: "labour", OriginalCost: 0, RevisedCost: 120},
		Item{ItemDescription: "crane", OriginalCost: 300, RevisedCost: 200},
	)

	assert.Equal(t, 100.0, n.Items[0].Variance)
	assert.Equal(t, 25.0, n.Items[0].VariancePercent)
	assert.Equal(t, 120.0, n.Items[1].Variance)
	assert.Equal(t, 0.0, n.Items[1].VariancePercent)
	assert.Equal(t, -100.0, n.Items[2].Variance)
	assert.InDelta(t, -33.333, n.Items[2].VariancePercent, 0.001)

	assert.Equal(t, 700.0, n.TotalOriginalCost)
	assert.Equal(t, 820.0, n.TotalRevisedCost)
	assert.Equal(t, 120.0, n.TotalVariance)
	assert.Equal(t, fmt.Sprintf("CCN-%d", fixedNow.UnixMilli()), n.CCNNumber)
	assert.Equal(t, UrgencyMedium, n.Urgency)
	assert.Equal(t, StatusDraft, n.Status)
}

func TestAddKeepsExplicitNumber(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	n, err := s.Add(t.Context(), Draft{CCNNumber: "CCN-2024-007", ProjectID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, "CCN-2024-007", n.CCNNumber)
}

func TestSummaryCountsOnlyApprovedMoney(t *testing.T) {
	s := newTestStore(t, storage.NewMemory(), WithTransitionGuard(false))
	up := addNote(t, s, "P1", StatusSubmitted, Item{OriginalCost: 100, RevisedCost: 150})
	down := addNote(t, s, "P1", StatusSubmitted, Item{OriginalCost: 100, RevisedCost: 70})
	_, err := s.Approve(t.Context(), up.ID, "pm")
	require.NoError(t, err)
	_, err = s.Approve(t.Context(), down.ID, "pm")
	require.NoError(t, err)

	before := s.Summary(t.Context())
	addNote(t, s, "P1", StatusSubmitted, Item{OriginalCost: 10, RevisedCost: 9000})
	rejected := addNote(t, s, "P1", StatusSubmitted, Item{OriginalCost: 10, RevisedCost: 500})
	_, err = s.Reject(t.Context(), rejected.ID, "out of scope")
	require.NoError(t, err)
	addNote(t, s, "P1", StatusDraft, Item{OriginalCost: 1, RevisedCost: 2})
	after := s.Summary(t.Context())

	assert.Equal(t, before.TotalVariance, after.TotalVariance)
	assert.Equal(t, Summary{
		TotalCCNs:       5,
		PendingApproval: 1,
		Approved:        2,
		Rejected:        1,
		TotalVariance:   20,
		TotalIncrease:   50,
		TotalDecrease:   30,
	}, after)
}

func TestBudgetImpact(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	for _, pair := range [][2]float64{{1000, 1100}, {2000, 1800}} {
		n := addNote(t, s, "P1", StatusSubmitted, Item{OriginalCost: pair[0], RevisedCost: pair[1]})
		_, err := s.Approve(t.Context(), n.ID, "director")
		require.NoError(t, err)
	}
	addNote(t, s, "P1", StatusSubmitted, Item{OriginalCost: 500, RevisedCost: 550})
	addNote(t, s, "P2", StatusSubmitted, Item{OriginalCost: 1, RevisedCost: 2})

	impact := s.BudgetImpact(t.Context(), "P1")
	assert.Equal(t, 3000.0, impact.OriginalBudget)
	assert.Equal(t, 2900.0, impact.RevisedBudget)
	assert.Equal(t, -100.0, impact.TotalVariance)
	assert.InDelta(t, -3.33, impact.VariancePercent, 0.01)
	assert.Equal(t, -100.0, impact.ApprovedVariance)
	assert.Equal(t, 50.0, impact.PendingVariance)

	empty := s.BudgetImpact(t.Context(), "P9")
	assert.Equal(t, BudgetImpact{}, empty)
}

func TestTransitionGuard(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	n := addNote(t, s, "P1", StatusDraft)

	_, err := s.Approve(t.Context(), n.ID, "pm")
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	_, err = s.Reject(t.Context(), n.ID, "no")
	require.ErrorIs(t, err, ErrInvalidTransition)

	submitted, err := s.Submit(t.Context(), n.ID, "engineer")
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, submitted.Status)
	_, err = s.Submit(t.Context(), n.ID, "engineer")
	require.ErrorIs(t, err, ErrInvalidTransition)

	approved, err := s.Approve(t.Context(), n.ID, "pm")
	require.NoError(t, err)
	assert.Equal(t, "pm", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, fixedNow, *approved.ApprovedAt)

	_, err = s.Reject(t.Context(), n.ID, "too late")
	require.ErrorIs(t, err, ErrInvalidTransition)
	got, err := s.Get(t.Context(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestUnderReviewCanBeDecided(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	n := addNote(t, s, "P1", StatusDraft)
	review := StatusUnderReview
	_, err := s.Update(t.Context(), n.ID, Patch{Status: &review})
	require.NoError(t, err)

	rejected, err := s.Reject(t.Context(), n.ID, "insufficient justification")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "insufficient justification", rejected.RejectionReason)
}

func TestGuardDisabledAllowsAnyTransition(t *testing.T) {
	s := newTestStore(t, storage.NewMemory(), WithTransitionGuard(false))
	n := addNote(t, s, "P1", StatusDraft)

	approved, err := s.Approve(t.Context(), n.ID, "pm")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	rejected, err := s.Reject(t.Context(), n.ID, "changed mind")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
}

func TestMutationsOnMissingID(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	addNote(t, s, "P1", StatusDraft)
	before := s.List(t.Context())

	notes := "x"
	_, err := s.Update(t.Context(), "CCN-missing", Patch{Notes: &notes})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Approve(t.Context(), "CCN-missing", "pm")
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = s.Reject(t.Context(), "CCN-missing", "no")
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = s.Submit(t.Context(), "CCN-missing", "")
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.NoError(t, s.Remove(t.Context(), "CCN-missing"))

	assert.Equal(t, before, s.List(t.Context()))
}

func TestRemoveTwice(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	a := addNote(t, s, "P1", StatusDraft)
	b := addNote(t, s, "P1", StatusDraft)

	require.NoError(t, s.Remove(t.Context(), a.ID))
	afterFirst := s.List(t.Context())
	require.NoError(t, s.Remove(t.Context(), a.ID))
	assert.Equal(t, afterFirst, s.List(t.Context()))
	require.Len(t, afterFirst, 1)
	assert.Equal(t, b.ID, afterFirst[0].ID)
}

func TestDecisionHooks(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("queue offline")}
	recorder := &recordingRecorder{}
	s := newTestStore(t, storage.NewMemory(), WithNotifier(notifier), WithApprovalRecorder(recorder))

	n := addNote(t, s, "P1", StatusDraft, Item{OriginalCost: 10, RevisedCost: 15})
	_, err := s.Submit(t.Context(), n.ID, "engineer")
	require.NoError(t, err)
	_, err = s.Approve(t.Context(), n.ID, "pm")
	require.NoError(t, err, "notifier errors must not fail the approval")

	require.Len(t, notifier.decisions, 1)
	assert.Equal(t, StatusApproved, notifier.decisions[0].Status)
	assert.Equal(t, "pm", notifier.decisions[0].Actor)
	assert.Equal(t, 5.0, notifier.decisions[0].Note.TotalVariance)

	require.Len(t, recorder.logs, 2)
	assert.Equal(t, shared.ApprovalSubmit, recorder.logs[0].Action)
	assert.Equal(t, "engineer", recorder.logs[0].Actor)
	assert.Equal(t, shared.ApprovalApprove, recorder.logs[1].Action)
	assert.Equal(t, "ccn", recorder.logs[1].Module)
}

func TestSaveFailureRollsBack(t *testing.T) {
	backend := &failingBackend{Backend: storage.NewMemory()}
	notifier := &recordingNotifier{}
	s := newTestStore(t, backend, WithNotifier(notifier))
	n := addNote(t, s, "P1", StatusSubmitted, Item{OriginalCost: 10, RevisedCost: 20})

	backend.fail = true
	_, err := s.Approve(t.Context(), n.ID, "pm")
	require.Error(t, err)
	assert.Empty(t, notifier.decisions)

	got, err := s.Get(t.Context(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, got.Status)
	assert.Nil(t, got.ApprovedAt)
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	backend := storage.NewMemory()
	s := newTestStore(t, backend)
	n := addNote(t, s, "P1", StatusSubmitted, Item{OriginalCost: 100, RevisedCost: 90})
	_, err := s.Approve(t.Context(), n.ID, "pm")
	require.NoError(t, err)

	reopened := newTestStore(t, backend)
	got, err := reopened.Get(t.Context(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, -10.0, got.TotalVariance)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, fixedNow.Equal(*got.ApprovedAt))
}

func TestReloadFailureKeepsNotes(t *testing.T) {
	backend := &failingBackend{Backend: storage.NewMemory()}
	s := newTestStore(t, backend)
	addNote(t, s, "P1", StatusSubmitted, Item{OriginalCost: 10, RevisedCost: 20})

	backend.failLoad = true
	require.ErrorContains(t, s.Reload(t.Context()), "read refused")
	assert.Len(t, s.List(t.Context()), 1)
}

package jobs

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCRSSnapshotTask(t *testing.T) {
	task, err := NewCRSSnapshotTask(CRSSnapshotPayload{Date: "2024-05-01"})
	require.NoError(t, err)
	assert.Equal(t, TaskCRSSnapshot, task.Type())

	var payload CRSSnapshotPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	date, err := payload.SnapshotDate(time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), date)
}

func TestSnapshotDateDefaultsToToday(t *testing.T) {
	now := time.Date(2024, 7, 9, 23, 15, 0, 0, time.UTC)
	date, err := CRSSnapshotPayload{}.SnapshotDate(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC), date)

	_, err = CRSSnapshotPayload{Date: "09/07/2024"}.SnapshotDate(now)
	require.Error(t, err)
}

func TestNewCCNDecisionTaskValidates(t *testing.T) {
	_, err := NewCCNDecisionTask(CCNDecisionPayload{Decision: "approved"})
	require.Error(t, err)
	_, err = NewCCNDecisionTask(CCNDecisionPayload{CCNID: "CCN-1"})
	require.Error(t, err)

	task, err := NewCCNDecisionTask(CCNDecisionPayload{CCNID: "CCN-1", Decision: "approved", Variance: 250})
	require.NoError(t, err)
	assert.Equal(t, TaskCCNDecision, task.Type())
}

func TestNilClientIsNotConfigured(t *testing.T) {
	var c *Client
	_, err := c.EnqueueCRSSnapshot(t.Context(), CRSSnapshotPayload{})
	require.ErrorIs(t, err, ErrNotConfigured)
	require.NoError(t, c.Close())

	var w *Worker
	require.ErrorIs(t, w.Run(t.Context()), ErrNotConfigured)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func serveHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(inspector, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rr
}

func TestHealthWithoutInspector(t *testing.T) {
	rr := serveHealth(t, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0,"scheduled":0}`, rr.Body.String())
}

func TestHealthReportsQueueInfo(t *testing.T) {
	rr := serveHealth(t, stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Retry: 1}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":0,"retry":1,"scheduled":0}`, rr.Body.String())

	rr = serveHealth(t, stubInspector{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

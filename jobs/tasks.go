package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCRSSnapshot computes the CRS report and stores a dated snapshot.
	TaskCRSSnapshot = "crs:snapshot"
	// TaskCCNDecision notifies interested parties about an approval decision.
	TaskCCNDecision = "ccn:decision"
)

// CRSSnapshotPayload selects the snapshot date. A zero date means today (UTC).
type CRSSnapshotPayload struct {
	Date        string `json:"date,omitempty"`
	RequestedBy string `json:"requestedBy,omitempty"`
}

// SnapshotDate resolves the payload date against now.
func (p CRSSnapshotPayload) SnapshotDate(now time.Time) (time.Time, error) {
	if p.Date == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(time.DateOnly, p.Date)
}

// CCNDecisionPayload describes an approve or reject decision on a cost change note.
type CCNDecisionPayload struct {
	CCNID     string    `json:"ccnId"`
	CCNNumber string    `json:"ccnNumber"`
	ProjectID string    `json:"projectId"`
	Decision  string    `json:"decision"`
	Actor     string    `json:"actor,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Variance  float64   `json:"variance"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Validate checks required payload fields.
func (p CCNDecisionPayload) Validate() error {
	if p.CCNID == "" {
		return errors.New("jobs: ccn decision: missing ccn id")
	}
	if p.Decision == "" {
		return errors.New("jobs: ccn decision: missing decision")
	}
	return nil
}

// NewCRSSnapshotTask builds a snapshot task.
func NewCRSSnapshotTask(payload CRSSnapshotPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCRSSnapshot, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewCCNDecisionTask builds a decision notification task.
func NewCCNDecisionTask(payload CCNDecisionPayload) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCCNDecision, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

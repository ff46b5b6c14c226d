package ccn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/costdesk/costdesk/jobs"
)

// DecisionEnqueuer submits decision notification tasks.
type DecisionEnqueuer interface {
	EnqueueCCNDecision(ctx context.Context, payload jobs.CCNDecisionPayload) (*asynq.TaskInfo, error)
}

// QueueNotifier forwards approval decisions to the job queue.
type QueueNotifier struct {
	client DecisionEnqueuer
}

// NewQueueNotifier wraps a job client.
func NewQueueNotifier(client DecisionEnqueuer) *QueueNotifier {
	return &QueueNotifier{client: client}
}

// NotifyDecision enqueues a ccn:decision task.
func (q *QueueNotifier) NotifyDecision(ctx context.Context, d Decision) error {
	if q == nil || q.client == nil {
		return nil
	}
	decidedAt := d.Note.UpdatedAt
	if d.Note.ApprovedAt != nil {
		decidedAt = *d.Note.ApprovedAt
	}
	_, err := q.client.EnqueueCCNDecision(ctx, jobs.CCNDecisionPayload{
		CCNID:     d.Note.ID,
		CCNNumber: d.Note.CCNNumber,
		ProjectID: d.Note.ProjectID,
		Decision:  string(d.Status),
		Actor:     d.Actor,
		Reason:    d.Reason,
		Variance:  d.Note.TotalVariance,
		DecidedAt: decidedAt,
	})
	if err != nil {
		return fmt.Errorf("ccn: enqueue decision: %w", err)
	}
	return nil
}

// DecisionObserver counts processed decisions.
type DecisionObserver interface {
	ObserveDecision(decision string)
}

// DecisionJob processes ccn:decision tasks.
type DecisionJob struct {
	logger   *slog.Logger
	observer DecisionObserver
}

// NewDecisionJob constructs a job handler.
func NewDecisionJob(logger *slog.Logger, observer DecisionObserver) *DecisionJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DecisionJob{logger: logger, observer: observer}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *DecisionJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.CCNDecisionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := payload.Validate(); err != nil {
		j.logger.Warn("ccn decision payload", slog.Any("error", err))
		return asynq.SkipRetry
	}
	j.logger.Info("ccn decision",
		slog.String("ccn_id", payload.CCNID),
		slog.String("ccn_number", payload.CCNNumber),
		slog.String("project_id", payload.ProjectID),
		slog.String("decision", payload.Decision),
		slog.String("actor", payload.Actor),
		slog.String("reason", payload.Reason),
		slog.Float64("variance", payload.Variance),
		slog.Time("decided_at", payload.DecidedAt),
	)
	if j.observer != nil {
		j.observer.ObserveDecision(payload.Decision)
	}
	return nil
}

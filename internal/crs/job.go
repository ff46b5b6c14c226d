package crs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/costdesk/costdesk/jobs"
)

// Reloader refreshes a store from its persisted collection.
type Reloader interface {
	Reload(ctx context.Context) error
}

// SnapshotObserver records snapshot sizes.
type SnapshotObserver interface {
	SetSnapshotRows(n int)
}

// SnapshotJob processes crs:snapshot tasks.
type SnapshotJob struct {
	service   *Service
	snapshots *SnapshotStore
	reloaders []Reloader
	observer  SnapshotObserver
	logger    *slog.Logger
	now       func() time.Time
}

// NewSnapshotJob constructs a job handler. Reloaders run before each snapshot
// so the worker sees writes made by the API process.
func NewSnapshotJob(service *Service, snapshots *SnapshotStore, logger *slog.Logger, observer SnapshotObserver, reloaders ...Reloader) *SnapshotJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotJob{service: service, snapshots: snapshots, reloaders: reloaders, observer: observer, logger: logger, now: time.Now}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *SnapshotJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.CRSSnapshotPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	date, err := payload.SnapshotDate(j.now())
	if err != nil {
		j.logger.Warn("crs snapshot date", slog.String("date", payload.Date), slog.Any("error", err))
		return asynq.SkipRetry
	}
	report, err := j.Run(ctx, date)
	if err != nil {
		j.logger.Error("crs snapshot", slog.String("date", date.Format(time.DateOnly)), slog.Any("error", err))
		return err
	}
	j.logger.Info("crs snapshot stored",
		slog.String("date", date.Format(time.DateOnly)),
		slog.Int("rows", len(report.Rows)),
		slog.String("requested_by", payload.RequestedBy),
	)
	return nil
}

// Run reloads the sources, computes the report and stores it under date.
func (j *SnapshotJob) Run(ctx context.Context, date time.Time) (Report, error) {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range j.reloaders {
		g.Go(func() error { return r.Reload(gctx) })
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	report, err := j.service.Report(ctx)
	if err != nil {
		return Report{}, err
	}
	if err := j.snapshots.Save(ctx, date, report); err != nil {
		return Report{}, err
	}
	if j.observer != nil {
		j.observer.SetSnapshotRows(len(report.Rows))
	}
	return report, nil
}

package tasks

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"launchpadResume/internal/submission"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher enqueues the background work that follows a submission change.
// The change is already committed when it runs, so enqueue failures are logged
// and never surface to the caller. A nil Dispatcher does nothing.
type Dispatcher struct {
	enqueuer Enqueuer
	logger   *slog.Logger
}

func NewDispatcher(enqueuer Enqueuer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{enqueuer: enqueuer, logger: logger}
}

// Submitted freezes the resume and tells the owner the submission was received.
func (d *Dispatcher) Submitted(ctx context.Context, sub *submission.View, correlationID string) {
	if d == nil || d.enqueuer == nil || sub == nil {
		return
	}
	task, err := NewSnapshotTask(SnapshotPayload{
		SubmissionID:  sub.ID,
		ResumeID:      sub.ResumeID,
		CorrelationID: correlationID,
	})
	d.enqueue(ctx, task, err, sub)
	d.StatusChanged(ctx, sub, correlationID)
}

// StatusChanged pushes the submission's current status to its owner.
func (d *Dispatcher) StatusChanged(ctx context.Context, sub *submission.View, correlationID string) {
	if d == nil || d.enqueuer == nil || sub == nil {
		return
	}
	task, err := NewNotifyTask(NotifyPayload{
		SubmissionID:  sub.ID,
		ResumeID:      sub.ResumeID,
		UserID:        sub.UserID,
		Status:        string(sub.Status),
		ReviewScore:   sub.ReviewScore,
		CorrelationID: correlationID,
	})
	d.enqueue(ctx, task, err, sub)
}

func (d *Dispatcher) enqueue(ctx context.Context, task *asynq.Task, buildErr error, sub *submission.View) {
	log := d.logger.With(
		slog.Uint64("submission_id", uint64(sub.ID)),
		slog.Uint64("resume_id", uint64(sub.ResumeID)),
	)
	if buildErr != nil {
		log.Error("build task failed", slog.Any("error", buildErr))
		return
	}
	info, err := d.enqueuer.EnqueueContext(ctx, task)
	if err != nil {
		log.Error("enqueue task failed", slog.String("task_type", task.Type()), slog.Any("error", err))
		return
	}
	log.Info("task enqueued", slog.String("task_type", task.Type()), slog.String("task_id", info.ID))
}

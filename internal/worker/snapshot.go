package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"launchpadResume/internal/apperr"
	"launchpadResume/internal/database"
	"launchpadResume/internal/resume"
	"launchpadResume/internal/storage"
	"launchpadResume/internal/tasks"
)

// JSONPutter is the part of storage.ObjectStore the snapshot handler uses.
type JSONPutter interface {
	PutJSON(ctx context.Context, key string, value any) error
}

// SnapshotKeySetter records where a submission's snapshot was written.
type SnapshotKeySetter interface {
	SetSnapshotKey(ctx context.Context, id uint, key string) error
}

// Snapshot 是提交时刻的简历副本。
type Snapshot struct {
	SubmissionID uint           `json:"submission_id"`
	CapturedAt   time.Time      `json:"captured_at"`
	Resume       map[string]any `json:"resume"`
}

// SnapshotTaskHandler 负责消费快照任务。
type SnapshotTaskHandler struct {
	db          *gorm.DB
	objects     JSONPutter
	submissions SnapshotKeySetter
	logger      *slog.Logger
	now         func() time.Time
}

func NewSnapshotTaskHandler(db *gorm.DB, objects JSONPutter, submissions SnapshotKeySetter, logger *slog.Logger) *SnapshotTaskHandler {
	return &SnapshotTaskHandler{
		db:          db,
		objects:     objects,
		submissions: submissions,
		logger:      logger,
		now:         time.Now,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *SnapshotTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.SnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal snapshot payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("submission_id", uint64(payload.SubmissionID)),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
	)

	var r database.Resume
	if err := h.db.WithContext(ctx).First(&r, payload.ResumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping snapshot")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	key := storage.SnapshotKey(payload.ResumeID, payload.SubmissionID)
	snapshot := Snapshot{
		SubmissionID: payload.SubmissionID,
		CapturedAt:   h.now().UTC(),
		Resume:       resume.Document(&r),
	}
	if err := h.objects.PutJSON(ctx, key, snapshot); err != nil {
		log.Error("upload snapshot failed", slog.Any("error", err))
		return err
	}

	if err := h.submissions.SetSnapshotKey(ctx, payload.SubmissionID, key); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Warn("submission gone before snapshot was recorded")
			return nil
		}
		log.Error("record snapshot key failed", slog.Any("error", err))
		return err
	}

	log.Info("snapshot stored", slog.String("object_key", key))
	return nil
}

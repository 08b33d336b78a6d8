package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"launchpadResume/internal/tasks"
)

// NotifyChannel 是用户通知在 Redis Pub/Sub 上的频道名。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

// NotifyMessage 是推送给前端的 WebSocket 消息，字段名与前端解析保持一致。
type NotifyMessage struct {
	Type          string `json:"type"`
	Status        string `json:"status"`
	SubmissionID  uint   `json:"submission_id"`
	ResumeID      uint   `json:"resume_id"`
	ReviewScore   *int   `json:"review_score,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

const notifyMessageType = "submission_status"

// Publisher is satisfied by *redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// NotifyTaskHandler 把提交状态变化转发到用户频道。
type NotifyTaskHandler struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewNotifyTaskHandler(publisher Publisher, logger *slog.Logger) *NotifyTaskHandler {
	return &NotifyTaskHandler{publisher: publisher, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *NotifyTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal notify payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("submission_id", uint64(payload.SubmissionID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	if payload.UserID == 0 {
		log.Warn("notify payload without user, skipping")
		return nil
	}

	body, err := json.Marshal(NotifyMessage{
		Type:          notifyMessageType,
		Status:        payload.Status,
		SubmissionID:  payload.SubmissionID,
		ResumeID:      payload.ResumeID,
		ReviewScore:   payload.ReviewScore,
		CorrelationID: payload.CorrelationID,
	})
	if err != nil {
		return fmt.Errorf("encode notify message: %w", err)
	}

	channel := NotifyChannel(payload.UserID)
	receivers, err := h.publisher.Publish(ctx, channel, body).Result()
	if err != nil {
		log.Error("publish notify failed", slog.Any("error", err))
		return err
	}
	log.Info("notify published", slog.String("channel", channel), slog.Int64("receivers", receivers))
	return nil
}

package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeSubmissionSnapshot = "submission:snapshot"
	TypeSubmissionNotify   = "submission:notify"
)

// SnapshotPayload asks the worker to freeze the resume as it was at submission time.
type SnapshotPayload struct {
	SubmissionID  uint   `json:"submission_id"`
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
}

// NotifyPayload 描述一次提交状态变化，worker 转发给用户的 WebSocket。
type NotifyPayload struct {
	SubmissionID  uint   `json:"submission_id"`
	ResumeID      uint   `json:"resume_id"`
	UserID        uint   `json:"user_id"`
	Status        string `json:"status"`
	ReviewScore   *int   `json:"review_score,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// NewSnapshotTask 构造提交快照任务。
func NewSnapshotTask(p SnapshotPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSubmissionSnapshot, payload, asynq.MaxRetry(5)), nil
}

// NewNotifyTask 构造状态通知任务。
func NewNotifyTask(p NotifyPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSubmissionNotify, payload, asynq.MaxRetry(3)), nil
}

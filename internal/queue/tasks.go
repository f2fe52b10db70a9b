package queue

import (
	"encoding/json"

	"github.com/bazar-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskRefundProcess 退款处理任务
	TaskRefundProcess = constants.TaskRefundProcess
	// TaskNotificationDispatch 通知投递任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
)

// RefundProcessPayload 退款任务载荷
type RefundProcessPayload struct {
	ReturnID uint `json:"return_id"`
}

// NotificationDispatchPayload 通知投递任务载荷
type NotificationDispatchPayload struct {
	NotificationID uint `json:"notification_id"`
}

// NewRefundProcessTask 创建退款任务
func NewRefundProcessTask(payload RefundProcessPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefundProcess, body), nil
}

// NewNotificationDispatchTask 创建通知投递任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}

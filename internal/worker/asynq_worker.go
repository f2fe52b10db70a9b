package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/provider"
	"github.com/bazar-next/internal/queue"
	"github.com/bazar-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskRefundProcess, c.handleRefundProcess)
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
}

func (c *Consumer) handleRefundProcess(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_refund_process_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.RefundProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_refund_process_unmarshal_failed", "error", err)
		return err
	}
	if payload.ReturnID == 0 {
		logger.Debugw("worker_refund_process_skip_invalid_payload", "return_id", payload.ReturnID)
		return nil
	}
	if c.RefundService == nil {
		logger.Warnw("worker_refund_process_skip_service_nil", "return_id", payload.ReturnID)
		return nil
	}
	if err := c.RefundService.ProcessRefund(ctx, payload.ReturnID); err != nil {
		// 网关失败要重试，其余业务错误直接丢弃以免无意义重投
		if errors.Is(err, service.ErrRefundFailed) {
			return err
		}
		logger.Warnw("worker_refund_process_skip_domain_error", "return_id", payload.ReturnID, "error", err)
		return nil
	}
	return nil
}

func (c *Consumer) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if payload.NotificationID == 0 {
		logger.Debugw("worker_notification_dispatch_skip_invalid_payload", "notification_id", payload.NotificationID)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_notification_dispatch_skip_service_nil", "notification_id", payload.NotificationID)
		return nil
	}
	return c.NotificationService.Dispatch(ctx, payload.NotificationID)
}

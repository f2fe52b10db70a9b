package service

import (
	"context"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/queue"
	"github.com/bazar-next/internal/repository"

	"gorm.io/gorm"
)

// Notifier 通知投递端（邮件、站内信、推送等）
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// LogNotifier 日志投递端（默认实现，仅落审计日志）
type LogNotifier struct{}

// Notify 记录通知日志
func (LogNotifier) Notify(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return nil
	}
	logger.Infow("notification_delivered",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"event_type", n.EventType,
	)
	return nil
}

// NotificationService 通知发件箱服务
// 业务事务内写 pending 行，事务提交后异步投递，投递结果回写状态。
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	queueClient      *queue.Client
	notifier         Notifier
}

// NewNotificationService 创建通知服务
func NewNotificationService(notificationRepo repository.NotificationRepository, queueClient *queue.Client, notifier Notifier) *NotificationService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &NotificationService{
		notificationRepo: notificationRepo,
		queueClient:      queueClient,
		notifier:         notifier,
	}
}

// RecordTx 在业务事务内写入发件箱行，返回行 ID 供提交后入队
func (s *NotificationService) RecordTx(tx *gorm.DB, userID uint, eventType string, payload models.JSON) (uint, error) {
	n := &models.Notification{
		UserID:    userID,
		EventType: eventType,
		Payload:   payload,
		Status:    constants.NotificationStatusPending,
	}
	if err := s.notificationRepo.WithTx(tx).Create(n); err != nil {
		return 0, err
	}
	return n.ID, nil
}

// EnqueueDispatch 事务提交后为发件箱行入队投递任务
// 入队失败只记日志，pending 行由兜底扫描补投。
func (s *NotificationService) EnqueueDispatch(ids ...uint) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		err := s.queueClient.EnqueueNotificationDispatch(queue.NotificationDispatchPayload{NotificationID: id})
		if err != nil {
			logger.Warnw("notification_enqueue_failed",
				"notification_id", id,
				"error", err,
			)
		}
	}
}

// Dispatch 投递单条通知并回写状态
func (s *NotificationService) Dispatch(ctx context.Context, notificationID uint) error {
	n, err := s.notificationRepo.GetByID(notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		logger.Warnw("notification_dispatch_missing", "notification_id", notificationID)
		return nil
	}
	if n.Status != constants.NotificationStatusPending {
		return nil
	}

	if err := s.notifier.Notify(ctx, n); err != nil {
		logger.Errorw("notification_dispatch_failed",
			"notification_id", n.ID,
			"user_id", n.UserID,
			"event_type", n.EventType,
			"error", err,
		)
		if markErr := s.notificationRepo.MarkFailed(n.ID, err.Error()); markErr != nil {
			logger.Errorw("notification_mark_failed_error", "notification_id", n.ID, "error", markErr)
		}
		return err
	}
	return s.notificationRepo.MarkSent(n.ID, time.Now())
}

// DispatchPending 兜底扫描待投递通知（队列不可用或入队失败时的补偿）
func (s *NotificationService) DispatchPending(ctx context.Context, limit int) {
	list, err := s.notificationRepo.ListPending(limit)
	if err != nil {
		logger.Errorw("notification_pending_scan_failed", "error", err)
		return
	}
	for _, n := range list {
		if err := s.Dispatch(ctx, n.ID); err != nil {
			logger.Warnw("notification_pending_dispatch_failed",
				"notification_id", n.ID,
				"error", err,
			)
		}
	}
}

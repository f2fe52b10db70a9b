package service

import (
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/queue"

	"gorm.io/gorm"
)

// DisposeExpiredReturns 弃置超期未取回的验货不合格退货
// 尽力而为的批处理：逐行独立事务，单行失败只记日志不阻塞其余行。
func (s *ReturnsService) DisposeExpiredReturns(now time.Time) int {
	rets, err := s.returnRepo.ListExpiredForDisposal(now)
	if err != nil {
		logger.Errorw("return_disposal_scan_failed", "error", err)
		return 0
	}

	disposed := 0
	for _, ret := range rets {
		if err := s.disposeOne(ret.ID, now); err != nil {
			logger.Errorw("return_disposal_failed",
				"return_id", ret.ID,
				"error", err,
			)
			continue
		}
		disposed++
	}
	if disposed > 0 {
		logger.Infow("return_disposal_done", "count", disposed)
	}
	return disposed
}

// ReenqueueStaleRefunds 重投长期停留在退款发起状态的退货
// 兜底补偿：扫码侧入队失败只记日志，靠这里周期性重试，任务消费侧幂等。
func (s *ReturnsService) ReenqueueStaleRefunds(cutoff time.Time, limit int) int {
	rets, err := s.returnRepo.ListStaleRefundInitiated(cutoff, limit)
	if err != nil {
		logger.Errorw("refund_reenqueue_scan_failed", "error", err)
		return 0
	}

	reenqueued := 0
	for _, ret := range rets {
		if err := s.queueClient.EnqueueRefundProcess(queue.RefundProcessPayload{ReturnID: ret.ID}); err != nil {
			logger.Errorw("refund_reenqueue_failed",
				"return_id", ret.ID,
				"error", err,
			)
			continue
		}
		reenqueued++
	}
	if reenqueued > 0 {
		logger.Infow("refund_reenqueue_done", "count", reenqueued)
	}
	return reenqueued
}

func (s *ReturnsService) disposeOne(returnID uint, now time.Time) error {
	var notificationID uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		returnRepo := s.returnRepo.WithTx(tx)
		ret, err := returnRepo.GetByID(returnID)
		if err != nil {
			return err
		}
		// 被扫码或复检抢先推进的行直接跳过
		if ret == nil || ret.Status != constants.ReturnStatusConditionBad {
			return nil
		}
		if ret.ExpiresAt == nil || ret.ExpiresAt.After(now) {
			return nil
		}

		if err := returnRepo.Update(ret.ID, map[string]interface{}{
			"status":     constants.ReturnStatusRejectedByWarehouse,
			"updated_at": now,
		}); err != nil {
			return err
		}

		id, err := s.notifications.RecordTx(tx, ret.UserID, constants.NotificationEventReturnDisposed, models.JSON{
			"return_id": ret.ID,
			"order_id":  ret.OrderID,
		})
		if err != nil {
			return err
		}
		notificationID = id
		return nil
	})
	if err != nil {
		return err
	}

	if notificationID > 0 {
		s.notifications.EnqueueDispatch(notificationID)
	}
	return nil
}

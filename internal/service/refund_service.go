package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/payment/payhub"
	"github.com/bazar-next/internal/repository"

	"gorm.io/gorm"
)

// RefundGateway 退款网关契约
type RefundGateway interface {
	Refund(ctx context.Context, input payhub.RefundInput) (*payhub.RefundResult, error)
}

// RefundService 退款处理服务（异步任务消费侧）
type RefundService struct {
	returnRepo    repository.ReturnRepository
	orderRepo     repository.OrderRepository
	notifications *NotificationService
	gateway       RefundGateway
}

// NewRefundService 创建退款服务
func NewRefundService(returnRepo repository.ReturnRepository, orderRepo repository.OrderRepository, notifications *NotificationService, gateway RefundGateway) *RefundService {
	return &RefundService{
		returnRepo:    returnRepo,
		orderRepo:     orderRepo,
		notifications: notifications,
		gateway:       gateway,
	}
}

// ProcessRefund 执行退款
// 行锁 + 状态复核保证幂等：任务重复投递时第二次是空操作。
// 网关错误向上抛出触发队列重试。
func (s *RefundService) ProcessRefund(ctx context.Context, returnID uint) error {
	var notificationIDs []uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		returnRepo := s.returnRepo.WithTx(tx)

		ret, err := returnRepo.GetByIDForUpdate(returnID)
		if err != nil {
			return err
		}
		if ret == nil {
			logger.Warnw("refund_return_missing", "return_id", returnID)
			return nil
		}
		// 状态已推进说明退款已处理过（或被人工干预），直接退出
		if ret.Status != constants.ReturnStatusRefundInitiated {
			logger.Infow("refund_skip_status_guard",
				"return_id", ret.ID,
				"status", ret.Status,
			)
			return nil
		}

		order, err := s.orderRepo.WithTx(tx).GetByID(ret.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		_, err = s.gateway.Refund(ctx, payhub.RefundInput{
			RefundNo: fmt.Sprintf("RET_%d", ret.ID),
			OrderNo:  order.UUID,
			Amount:   ret.RefundAmount.String(),
			Currency: order.Currency,
			Reason:   ret.RejectionReason,
		})
		if err != nil {
			logger.Errorw("refund_gateway_failed",
				"return_id", ret.ID,
				"order_id", order.ID,
				"amount", ret.RefundAmount.String(),
				"error", err,
			)
			return fmt.Errorf("%w: %v", ErrRefundFailed, err)
		}

		now := time.Now()
		if err := returnRepo.Update(ret.ID, map[string]interface{}{
			"status":       constants.ReturnStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}); err != nil {
			return err
		}

		for _, userID := range []uint{ret.UserID, ret.SellerID} {
			id, err := s.notifications.RecordTx(tx, userID, constants.NotificationEventRefundCompleted, models.JSON{
				"return_id":     ret.ID,
				"order_id":      ret.OrderID,
				"refund_amount": ret.RefundAmount.String(),
			})
			if err != nil {
				return err
			}
			notificationIDs = append(notificationIDs, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifications.EnqueueDispatch(notificationIDs...)
	return nil
}

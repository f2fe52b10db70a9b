package service

import (
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/queue"

	"gorm.io/gorm"
)

// scanEventByTarget 扫码推进后发给客户的通知事件
var scanEventByTarget = map[string]string{
	constants.ReturnStatusInTransit:     constants.NotificationEventReturnInTransit,
	constants.ReturnStatusReceived:      constants.NotificationEventReturnReceived,
	constants.ReturnStatusInTransitBack: constants.NotificationEventReturnSentBack,
}

// ScanReturnQR 处理退货交接扫码
// 物理交接协议：寄出码按退货方式推进，退回码单次推进；
// 未知码与越权扫码都按安全事件落日志。
func (s *ReturnsService) ScanReturnQR(actor StatusActor, code string) (*models.OrderReturn, error) {
	token, err := s.returnRepo.FindTokenByCode(code)
	if err != nil {
		return nil, err
	}
	if token == nil {
		logger.Warnw("return_scan_unknown_code",
			"actor_id", actor.UserID,
			"role", actor.Role,
			"client_ip", actor.ClientIP,
		)
		return nil, ErrReturnQRUnknown
	}

	var notificationIDs []uint
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		returnRepo := s.returnRepo.WithTx(tx)
		ret, err := returnRepo.GetByID(token.ReturnID)
		if err != nil {
			return err
		}
		if ret == nil {
			return ErrReturnNotFound
		}

		if err := s.authorizeScan(actor, ret); err != nil {
			return err
		}
		// 过了退款起点的退货不再接受任何扫码
		if terminalReturnStatuses[ret.Status] {
			return ErrReturnTerminal
		}
		now := time.Now()
		if token.ExpiresAt == nil || !token.ExpiresAt.After(now) {
			return ErrReturnQRExpired
		}

		target, err := s.resolveScanTarget(actor, token, ret)
		if err != nil {
			return err
		}

		if err := returnRepo.Update(ret.ID, map[string]interface{}{
			"status":     target,
			"updated_at": now,
		}); err != nil {
			return err
		}

		id, err := s.notifications.RecordTx(tx, ret.UserID, scanEventByTarget[target], models.JSON{
			"return_id":  ret.ID,
			"order_id":   ret.OrderID,
			"new_status": target,
			"actor_role": actor.Role,
		})
		if err != nil {
			return err
		}
		notificationIDs = append(notificationIDs, id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifications.EnqueueDispatch(notificationIDs...)
	return s.returnRepo.GetByID(token.ReturnID)
}

// authorizeScan 扫码权限校验：客户只能扫自己的退货，卖家只能扫归属自己的退货
func (s *ReturnsService) authorizeScan(actor StatusActor, ret *models.OrderReturn) error {
	allowed := false
	switch actor.Role {
	case constants.RoleCustomer:
		allowed = ret.UserID == actor.UserID
	case constants.RoleSeller:
		allowed = ret.SellerID == actor.UserID
	}
	if !allowed {
		logger.Warnw("return_scan_unauthorized",
			"return_id", ret.ID,
			"actor_id", actor.UserID,
			"role", actor.Role,
			"client_ip", actor.ClientIP,
		)
		return ErrPermissionDenied
	}
	return nil
}

// resolveScanTarget 根据令牌类型、退货方式与当前状态决定扫码目标状态
func (s *ReturnsService) resolveScanTarget(actor StatusActor, token *models.ReturnToken, ret *models.OrderReturn) (string, error) {
	switch token.Kind {
	case constants.ReturnTokenKindOutbound:
		switch ret.ReturnMethod {
		case constants.ReturnMethodCourier:
			// 第一程任意一方扫码发货，第二程仅卖家签收
			if ret.Status == constants.ReturnStatusApproved {
				return constants.ReturnStatusInTransit, nil
			}
			if ret.Status == constants.ReturnStatusInTransit {
				if actor.Role != constants.RoleSeller {
					return "", ErrPermissionDenied
				}
				return constants.ReturnStatusReceived, nil
			}
		case constants.ReturnMethodSelf:
			// 自送退货没有配送程，卖家扫码即签收
			if ret.Status == constants.ReturnStatusApproved {
				if actor.Role != constants.RoleSeller {
					return "", ErrPermissionDenied
				}
				return constants.ReturnStatusReceived, nil
			}
		}
	case constants.ReturnTokenKindBackToCustomer:
		if ret.Status == constants.ReturnStatusConditionBad {
			return constants.ReturnStatusInTransitBack, nil
		}
	}
	return "", ErrReturnStatusInvalid
}

// MarkConditionOK 卖家验货合格
// 复合推进：condition_ok 写入并通知后，同事务内级联到 refund_initiated，
// 提交后派发退款任务。
func (s *ReturnsService) MarkConditionOK(sellerID, returnID uint) error {
	var notificationIDs []uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		returnRepo := s.returnRepo.WithTx(tx)
		ret, err := returnRepo.GetByID(returnID)
		if err != nil {
			return err
		}
		if ret == nil {
			return ErrReturnNotFound
		}
		if ret.SellerID != sellerID {
			return ErrPermissionDenied
		}
		// 验货合格从已签收进入，condition_bad 允许复检翻案
		if ret.Status != constants.ReturnStatusReceived && ret.Status != constants.ReturnStatusConditionBad {
			return ErrReturnStatusInvalid
		}

		now := time.Now()
		if err := returnRepo.Update(ret.ID, map[string]interface{}{
			"status":     constants.ReturnStatusConditionOK,
			"updated_at": now,
		}); err != nil {
			return err
		}
		id, err := s.notifications.RecordTx(tx, ret.UserID, constants.NotificationEventReturnConditionOK, models.JSON{
			"return_id": ret.ID,
			"order_id":  ret.OrderID,
		})
		if err != nil {
			return err
		}
		notificationIDs = append(notificationIDs, id)

		if err := returnRepo.Update(ret.ID, map[string]interface{}{
			"status":     constants.ReturnStatusRefundInitiated,
			"updated_at": now,
		}); err != nil {
			return err
		}
		id, err = s.notifications.RecordTx(tx, ret.UserID, constants.NotificationEventRefundInitiated, models.JSON{
			"return_id":     ret.ID,
			"order_id":      ret.OrderID,
			"refund_amount": ret.RefundAmount.String(),
		})
		if err != nil {
			return err
		}
		notificationIDs = append(notificationIDs, id)
		return nil
	})
	if err != nil {
		return err
	}

	s.notifications.EnqueueDispatch(notificationIDs...)
	if err := s.queueClient.EnqueueRefundProcess(queue.RefundProcessPayload{ReturnID: returnID}); err != nil {
		// 入队失败不回滚状态，由周期补偿扫描重投
		logger.Errorw("refund_enqueue_failed", "return_id", returnID, "error", err)
	}
	return nil
}

// MarkConditionBad 卖家验货不合格
// 照片追加到首条退货明细，签发退回客户二维码并武装 24 小时弃置期限。
func (s *ReturnsService) MarkConditionBad(sellerID, returnID uint, reason string, photos []string) error {
	var notificationIDs []uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		returnRepo := s.returnRepo.WithTx(tx)
		ret, err := returnRepo.GetByID(returnID)
		if err != nil {
			return err
		}
		if ret == nil {
			return ErrReturnNotFound
		}
		if ret.SellerID != sellerID {
			return ErrPermissionDenied
		}
		if ret.Status != constants.ReturnStatusReceived && ret.Status != constants.ReturnStatusApproved {
			return ErrReturnStatusInvalid
		}

		now := time.Now()
		deadline := now.Add(time.Duration(s.cfg.QRExpireHours) * time.Hour)
		if err := returnRepo.Update(ret.ID, map[string]interface{}{
			"status":           constants.ReturnStatusConditionBad,
			"rejection_reason": reason,
			"expires_at":       deadline,
			"updated_at":       now,
		}); err != nil {
			return err
		}

		if len(photos) > 0 && len(ret.Items) > 0 {
			first := ret.Items[0]
			merged := append(models.StringArray{}, first.Photos...)
			merged = append(merged, photos...)
			if err := returnRepo.UpdateItem(first.ID, map[string]interface{}{
				"photos":     merged,
				"updated_at": now,
			}); err != nil {
				return err
			}
		}

		if _, err := s.issueTokenTx(returnRepo, ret.ID, constants.ReturnTokenKindBackToCustomer, now); err != nil {
			return err
		}

		id, err := s.notifications.RecordTx(tx, ret.UserID, constants.NotificationEventReturnConditionBad, models.JSON{
			"return_id": ret.ID,
			"order_id":  ret.OrderID,
			"reason":    reason,
		})
		if err != nil {
			return err
		}
		notificationIDs = append(notificationIDs, id)
		return nil
	})
	if err != nil {
		return err
	}

	s.notifications.EnqueueDispatch(notificationIDs...)
	return nil
}

// manualReturnTransitions 显式状态名更新允许的推进
var manualReturnTransitions = map[string]map[string]bool{
	constants.ReturnStatusConditionBad: {
		constants.ReturnStatusInTransitBack: true,
	},
}

// UpdateReturnStatusByName 按状态名显式推进（condition_bad 发回客户的非扫码路径）
func (s *ReturnsService) UpdateReturnStatusByName(sellerID, returnID uint, target string) error {
	var notificationIDs []uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		returnRepo := s.returnRepo.WithTx(tx)
		ret, err := returnRepo.GetByID(returnID)
		if err != nil {
			return err
		}
		if ret == nil {
			return ErrReturnNotFound
		}
		if ret.SellerID != sellerID {
			return ErrPermissionDenied
		}
		if !manualReturnTransitions[ret.Status][target] {
			return ErrReturnStatusInvalid
		}

		now := time.Now()
		if err := returnRepo.Update(ret.ID, map[string]interface{}{
			"status":     target,
			"updated_at": now,
		}); err != nil {
			return err
		}

		event := scanEventByTarget[target]
		if event == "" {
			event = constants.NotificationEventReturnSentBack
		}
		id, err := s.notifications.RecordTx(tx, ret.UserID, event, models.JSON{
			"return_id":  ret.ID,
			"order_id":   ret.OrderID,
			"new_status": target,
		})
		if err != nil {
			return err
		}
		notificationIDs = append(notificationIDs, id)
		return nil
	})
	if err != nil {
		return err
	}

	s.notifications.EnqueueDispatch(notificationIDs...)
	return nil
}

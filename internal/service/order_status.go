package service

import (
	"context"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/models"

	"gorm.io/gorm"
)

// StatusActor 状态变更操作者
type StatusActor struct {
	UserID   uint
	Role     string
	ClientIP string
}

// sellerOrderTransitions 子订单状态机（from × to）
var sellerOrderTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusAssembling: true,
		constants.OrderStatusCanceled:   true,
	},
	constants.OrderStatusAssembling: {
		constants.OrderStatusShipped:  true,
		constants.OrderStatusCanceled: true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusCompleted: true,
	},
}

// roleStatusTargets 角色可写入的目标状态
var roleStatusTargets = map[string]map[string]bool{
	constants.RoleSeller: {
		constants.OrderStatusAssembling: true,
		constants.OrderStatusCanceled:   true,
	},
	constants.RoleCourier: {
		constants.OrderStatusShipped:   true,
		constants.OrderStatusCompleted: true,
	},
}

// qrGatedStatuses 需要出示有效交接二维码的目标状态
var qrGatedStatuses = map[string]bool{
	constants.OrderStatusShipped:   true,
	constants.OrderStatusCompleted: true,
}

// RecomputeOrderStatus 根据子订单状态集合推导父订单状态（纯函数，幂等）
func RecomputeOrderStatus(children []models.SellerOrder) string {
	if len(children) == 0 {
		return constants.OrderStatusPending
	}
	var completed, canceled, assembling, shipped int
	for _, child := range children {
		switch child.Status {
		case constants.OrderStatusCompleted:
			completed++
		case constants.OrderStatusCanceled:
			canceled++
		case constants.OrderStatusAssembling:
			assembling++
		case constants.OrderStatusShipped:
			shipped++
		}
	}
	switch {
	case completed == len(children):
		return constants.OrderStatusCompleted
	case canceled == len(children):
		return constants.OrderStatusCanceled
	case assembling > 0:
		return constants.OrderStatusAssembling
	case shipped > 0:
		return constants.OrderStatusShipped
	default:
		return constants.OrderStatusPending
	}
}

// UpdateSellerOrderStatus 按角色与状态机推进子订单状态，并同步父订单
// shipped/completed 需要出示与订单匹配且未过期的交接二维码。
func (s *OrderService) UpdateSellerOrderStatus(actor StatusActor, sellerOrderID uint, target, qrCode string) error {
	var notificationIDs []uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)

		so, err := orderRepo.GetSellerOrderByID(sellerOrderID)
		if err != nil {
			return err
		}
		if so == nil || so.Order == nil {
			return ErrSellerOrderNotFound
		}

		if err := s.authorizeStatusWrite(actor, so, target); err != nil {
			return err
		}
		if !sellerOrderTransitions[so.Status][target] {
			return ErrOrderStatusInvalid
		}
		if qrGatedStatuses[target] && !validOrderQR(so.Order, qrCode, time.Now()) {
			logger.Warnw("order_qr_check_failed",
				"seller_order_id", so.ID,
				"order_id", so.OrderID,
				"actor_id", actor.UserID,
				"role", actor.Role,
				"client_ip", actor.ClientIP,
			)
			return ErrQRTokenInvalid
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":     target,
			"updated_at": now,
		}
		if target == constants.OrderStatusAssembling && so.ConfirmedAt == nil {
			updates["confirmed_at"] = now
		}
		if err := orderRepo.UpdateSellerOrder(so.ID, updates); err != nil {
			return err
		}

		ids, err := s.syncOrderStatusTx(tx, so.OrderID, now)
		if err != nil {
			return err
		}
		notificationIDs = append(notificationIDs, ids...)
		return nil
	})
	if err != nil {
		return err
	}

	s.notifications.EnqueueDispatch(notificationIDs...)
	return nil
}

// authorizeStatusWrite 校验操作者是否可写入目标状态
func (s *OrderService) authorizeStatusWrite(actor StatusActor, so *models.SellerOrder, target string) error {
	if !roleStatusTargets[actor.Role][target] {
		return ErrPermissionDenied
	}
	switch actor.Role {
	case constants.RoleSeller:
		if so.SellerID != actor.UserID {
			return ErrPermissionDenied
		}
	case constants.RoleCourier:
		if so.Order.CourierID == nil || *so.Order.CourierID != actor.UserID {
			return ErrCourierNotAssigned
		}
	default:
		return ErrPermissionDenied
	}
	return nil
}

// syncOrderStatusTx 重算父订单状态，发生变化时落库并写状态变更通知
func (s *OrderService) syncOrderStatusTx(tx *gorm.DB, orderID uint, now time.Time) ([]uint, error) {
	orderRepo := s.orderRepo.WithTx(tx)
	order, err := orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	newStatus := RecomputeOrderStatus(order.SellerOrders)
	if newStatus == order.Status {
		return nil, nil
	}
	if err := orderRepo.Update(order.ID, map[string]interface{}{
		"status":     newStatus,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}

	id, err := s.notifications.RecordTx(tx, order.UserID, constants.NotificationEventOrderStatusUpdated, models.JSON{
		"order_id":   order.ID,
		"old_status": order.Status,
		"new_status": newStatus,
	})
	if err != nil {
		return nil, err
	}
	return []uint{id}, nil
}

// EnsureOrderQR 懒签发订单交接二维码令牌（缺失或过期时重签）
func (s *OrderService) EnsureOrderQR(orderID uint) (string, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", ErrOrderNotFound
	}

	now := time.Now()
	if order.QRToken != "" && order.QRExpiresAt != nil && order.QRExpiresAt.After(now) {
		return order.QRToken, nil
	}

	token := generateToken(s.qrTokenLength)
	expiresAt := now.Add(time.Duration(s.qrExpireHours) * time.Hour)
	if err := s.orderRepo.Update(order.ID, map[string]interface{}{
		"qr_token":      token,
		"qr_expires_at": expiresAt,
		"updated_at":    now,
	}); err != nil {
		return "", err
	}
	return token, nil
}

// OrderQRPNG 渲染订单交接二维码 PNG
func (s *OrderService) OrderQRPNG(ctx context.Context, orderID, userID uint) ([]byte, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	token, err := s.EnsureOrderQR(order.ID)
	if err != nil {
		return nil, err
	}
	return s.renderer.PNG(ctx, token)
}

func validOrderQR(order *models.Order, code string, now time.Time) bool {
	if order == nil || code == "" || order.QRToken == "" {
		return false
	}
	if code != order.QRToken {
		return false
	}
	return order.QRExpiresAt != nil && order.QRExpiresAt.After(now)
}

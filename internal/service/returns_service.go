package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/queue"
	"github.com/bazar-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReturnsConfig 退货流程配置
type ReturnsConfig struct {
	PeriodDays        int
	LogisticsFee      models.Money
	FreeReturnReasons map[string]bool
	QRLength          int
	QRExpireHours     int
}

// ReturnsService 退货流程服务
type ReturnsService struct {
	returnRepo    repository.ReturnRepository
	orderRepo     repository.OrderRepository
	notifications *NotificationService
	queueClient   *queue.Client
	cfg           ReturnsConfig
}

// NewReturnsService 创建退货服务
func NewReturnsService(returnRepo repository.ReturnRepository, orderRepo repository.OrderRepository, notifications *NotificationService, queueClient *queue.Client, cfg ReturnsConfig) *ReturnsService {
	if cfg.PeriodDays <= 0 {
		cfg.PeriodDays = 14
	}
	if cfg.QRLength <= 0 {
		cfg.QRLength = 32
	}
	if cfg.QRExpireHours <= 0 {
		cfg.QRExpireHours = 24
	}
	if cfg.FreeReturnReasons == nil {
		cfg.FreeReturnReasons = map[string]bool{
			constants.ReturnReasonNotAsDescribed: true,
			constants.ReturnReasonDefective:      true,
		}
	}
	return &ReturnsService{
		returnRepo:    returnRepo,
		orderRepo:     orderRepo,
		notifications: notifications,
		queueClient:   queueClient,
		cfg:           cfg,
	}
}

// terminalReturnStatuses 不再接受任何扫码或状态推进的终态
var terminalReturnStatuses = map[string]bool{
	constants.ReturnStatusRejected:            true,
	constants.ReturnStatusRejectedByWarehouse: true,
	constants.ReturnStatusRefundInitiated:     true,
	constants.ReturnStatusCompleted:           true,
}

// CreateReturnInput 创建退货申请输入
type CreateReturnInput struct {
	UserID       uint
	OrderID      uint
	ReturnMethod string
	Items        []CreateReturnItem
}

// CreateReturnItem 退货明细输入
type CreateReturnItem struct {
	OrderItemID uint
	Quantity    int
	Reason      string
	Comment     string
}

// CreateReturn 创建退货申请
// 仅限已完成且在退货窗口内的订单；任一明细校验失败则整单回滚。
func (s *ReturnsService) CreateReturn(input CreateReturnInput) (*models.OrderReturn, error) {
	if input.UserID == 0 || input.OrderID == 0 || len(input.Items) == 0 {
		return nil, ErrReturnCreateFailed
	}
	switch input.ReturnMethod {
	case constants.ReturnMethodSelf, constants.ReturnMethodCourier:
	default:
		return nil, ErrReturnCreateFailed
	}

	order, err := s.orderRepo.GetByIDAndUser(input.OrderID, input.UserID)
	if err != nil {
		return nil, s.wrapCreateError(err, input)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusCompleted {
		return nil, ErrReturnOrderIneligible
	}
	now := time.Now()
	if now.Sub(order.UpdatedAt) > time.Duration(s.cfg.PeriodDays)*24*time.Hour {
		return nil, ErrReturnWindowClosed
	}

	ret := &models.OrderReturn{
		OrderID:      order.ID,
		UserID:       input.UserID,
		Status:       constants.ReturnStatusPending,
		ReturnMethod: input.ReturnMethod,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var notificationIDs []uint
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		returnRepo := s.returnRepo.WithTx(tx)

		takenIDs, err := returnRepo.ListActiveItemIDsByOrder(order.ID)
		if err != nil {
			return err
		}
		taken := make(map[uint]bool, len(takenIDs))
		for _, id := range takenIDs {
			taken[id] = true
		}

		orderItems := make(map[uint]models.OrderItem, len(order.Items))
		for _, item := range order.Items {
			orderItems[item.ID] = item
		}
		sellerBySellerOrder := make(map[uint]uint, len(order.SellerOrders))
		for _, so := range order.SellerOrders {
			sellerBySellerOrder[so.ID] = so.SellerID
		}

		refund := decimal.Zero
		logistics := decimal.Zero
		var sellerID uint
		items := make([]models.ReturnItem, 0, len(input.Items))
		for _, req := range input.Items {
			orderItem, ok := orderItems[req.OrderItemID]
			if !ok {
				return ErrReturnItemInvalid
			}
			if req.Quantity <= 0 || req.Quantity > orderItem.Quantity {
				return ErrReturnItemInvalid
			}
			if taken[orderItem.ID] {
				return ErrReturnItemTaken
			}
			itemSeller := sellerBySellerOrder[orderItem.SellerOrderID]
			if sellerID == 0 {
				sellerID = itemSeller
			}
			// 一次退货申请只面向一个卖家
			if itemSeller != sellerID {
				return ErrReturnItemInvalid
			}

			if !s.cfg.FreeReturnReasons[req.Reason] {
				logistics = logistics.Add(s.cfg.LogisticsFee.Decimal)
			}
			refund = refund.Add(orderItem.Price.Decimal.Mul(decimal.NewFromInt(int64(req.Quantity))))

			items = append(items, models.ReturnItem{
				OrderItemID: orderItem.ID,
				ProductID:   orderItem.ProductID,
				Quantity:    req.Quantity,
				Price:       orderItem.Price,
				Reason:      req.Reason,
				Comment:     req.Comment,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}

		ret.SellerID = sellerID
		ret.RefundAmount = models.NewMoneyFromDecimal(refund)
		ret.LogisticsCost = models.NewMoneyFromDecimal(logistics)
		if err := returnRepo.Create(ret, items); err != nil {
			return err
		}

		for _, userID := range []uint{input.UserID, sellerID} {
			id, err := s.notifications.RecordTx(tx, userID, constants.NotificationEventReturnRequested, models.JSON{
				"return_id":     ret.ID,
				"order_id":      order.ID,
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
		return nil, s.wrapCreateError(err, input)
	}

	s.notifications.EnqueueDispatch(notificationIDs...)
	return s.returnRepo.GetByID(ret.ID)
}

// wrapCreateError 领域错误原样返回，基础设施错误记日志后统一降级
func (s *ReturnsService) wrapCreateError(err error, input CreateReturnInput) error {
	switch {
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrReturnOrderIneligible),
		errors.Is(err, ErrReturnWindowClosed),
		errors.Is(err, ErrReturnItemInvalid),
		errors.Is(err, ErrReturnItemTaken),
		errors.Is(err, ErrReturnCreateFailed):
		return err
	}
	logger.Errorw("return_create_failed",
		"user_id", input.UserID,
		"order_id", input.OrderID,
		"error", err,
	)
	return ErrReturnCreateFailed
}

// ApproveReturn 卖家通过退货申请并签发寄出二维码
func (s *ReturnsService) ApproveReturn(sellerID, returnID uint) error {
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
		if ret.Status != constants.ReturnStatusPending {
			return ErrReturnStatusInvalid
		}

		now := time.Now()
		if _, err := s.issueTokenTx(returnRepo, ret.ID, constants.ReturnTokenKindOutbound, now); err != nil {
			return err
		}
		if err := returnRepo.Update(ret.ID, map[string]interface{}{
			"status":     constants.ReturnStatusApproved,
			"updated_at": now,
		}); err != nil {
			return err
		}

		id, err := s.notifications.RecordTx(tx, ret.UserID, constants.NotificationEventReturnApproved, models.JSON{
			"return_id": ret.ID,
			"order_id":  ret.OrderID,
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

// RejectReturn 卖家拒绝退货申请（终态）
func (s *ReturnsService) RejectReturn(sellerID, returnID uint, reason string) error {
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
		if ret.Status != constants.ReturnStatusPending {
			return ErrReturnStatusInvalid
		}

		if err := returnRepo.Update(ret.ID, map[string]interface{}{
			"status":           constants.ReturnStatusRejected,
			"rejection_reason": reason,
			"updated_at":       time.Now(),
		}); err != nil {
			return err
		}

		id, err := s.notifications.RecordTx(tx, ret.UserID, constants.NotificationEventReturnRejected, models.JSON{
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

// issueTokenTx 签发退货二维码令牌（追加一行，历史令牌保留）
func (s *ReturnsService) issueTokenTx(returnRepo *repository.GormReturnRepository, returnID uint, kind string, now time.Time) (*models.ReturnToken, error) {
	expiresAt := now.Add(time.Duration(s.cfg.QRExpireHours) * time.Hour)
	token := &models.ReturnToken{
		ReturnID:  returnID,
		Kind:      kind,
		Code:      fmt.Sprintf("RETURN_%s", generateToken(s.cfg.QRLength)),
		ExpiresAt: &expiresAt,
		CreatedAt: now,
	}
	if err := returnRepo.CreateToken(token); err != nil {
		return nil, err
	}
	return token, nil
}

// GetReturn 查询退货申请（客户或卖家本人）
func (s *ReturnsService) GetReturn(actor StatusActor, returnID uint) (*models.OrderReturn, error) {
	ret, err := s.returnRepo.GetByID(returnID)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, ErrReturnNotFound
	}
	switch actor.Role {
	case constants.RoleCustomer:
		if ret.UserID != actor.UserID {
			return nil, ErrPermissionDenied
		}
	case constants.RoleSeller:
		if ret.SellerID != actor.UserID {
			return nil, ErrPermissionDenied
		}
	default:
		return nil, ErrPermissionDenied
	}
	return ret, nil
}

// ListReturns 分页查询退货申请
func (s *ReturnsService) ListReturns(filter repository.ReturnListFilter) ([]models.OrderReturn, int64, error) {
	return s.returnRepo.List(filter)
}

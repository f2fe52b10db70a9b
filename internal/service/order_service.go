package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/logger"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/qr"
	"github.com/bazar-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单服务
type OrderService struct {
	orderRepo     repository.OrderRepository
	productRepo   repository.ProductRepository
	cartRepo      repository.CartRepository
	userRepo      repository.UserRepository
	priceCalc     *PriceCalculator
	notifications *NotificationService
	renderer      *qr.Renderer
	qrTokenLength int
	qrExpireHours int
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, cartRepo repository.CartRepository, userRepo repository.UserRepository, priceCalc *PriceCalculator, notifications *NotificationService, renderer *qr.Renderer, qrTokenLength, qrExpireHours int) *OrderService {
	if qrTokenLength <= 0 {
		qrTokenLength = 32
	}
	if qrExpireHours <= 0 {
		qrExpireHours = 24
	}
	return &OrderService{
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		cartRepo:      cartRepo,
		userRepo:      userRepo,
		priceCalc:     priceCalc,
		notifications: notifications,
		renderer:      renderer,
		qrTokenLength: qrTokenLength,
		qrExpireHours: qrExpireHours,
	}
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	UserID        uint
	UserAddressID uint
	CartItemIDs   []uint
	PaymentMethod string
	Currency      string
	ClientIP      string
}

// sellerOrderPlan 卖家子订单计划数据
type sellerOrderPlan struct {
	SellerID uint
	Items    []models.OrderItem
	Subtotal decimal.Decimal
}

// CreateOrder 创建订单
// 购物车行加锁后校验、扣库存、按卖家拆分子订单，全程单事务。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.UserID == 0 || len(input.CartItemIDs) == 0 {
		return nil, ErrCartEmpty
	}
	switch input.PaymentMethod {
	case constants.PaymentMethodCard, constants.PaymentMethodCash:
	default:
		return nil, ErrPaymentMethodInvalid
	}
	currencyCode := input.Currency
	if currencyCode == "" {
		currencyCode = constants.SiteCurrencyDefault
	}

	address, err := s.userRepo.GetAddressByIDAndUser(input.UserAddressID, input.UserID)
	if err != nil {
		return nil, s.wrapCreateError(err, input)
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}

	now := time.Now()
	order := &models.Order{
		UUID:          uuid.NewString(),
		UserID:        input.UserID,
		UserAddressID: address.ID,
		Status:        constants.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var notificationIDs []uint
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		// 购物车行加锁，数量不一致说明有行已被消费或不属于该用户
		cartItems, err := cartRepo.ListByIDsForUpdate(input.UserID, input.CartItemIDs)
		if err != nil {
			return err
		}
		if len(cartItems) != len(input.CartItemIDs) {
			return ErrCartMismatch
		}
		for _, item := range cartItems {
			if item.Product == nil || !item.Product.IsActive {
				return ErrProductUnavailable
			}
			if item.Quantity <= 0 {
				return ErrCartMismatch
			}
		}

		totals, err := s.priceCalc.CalculateTotals(cartItems, currencyCode)
		if err != nil {
			return err
		}

		// 守护式扣库存，影响行数为 0 即库存不足
		for _, item := range cartItems {
			affected, err := productRepo.ReserveStock(item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, item.Product.Title)
			}
		}

		// 入账币种以计算结果为准，请求币种只参与校验
		order.Currency = totals.Currency
		order.DeliveryCost = totals.DeliveryCost
		order.TotalAmount = totals.Total
		if err := orderRepo.Create(order); err != nil {
			return err
		}

		plans := buildSellerOrderPlans(cartItems, totals, now)
		subtotal := decimal.Zero
		for _, plan := range plans {
			so := &models.SellerOrder{
				OrderID:     order.ID,
				SellerID:    plan.SellerID,
				Status:      constants.OrderStatusPending,
				TotalAmount: models.NewMoneyFromDecimal(plan.Subtotal),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := orderRepo.CreateSellerOrder(so, plan.Items); err != nil {
				return err
			}
			subtotal = subtotal.Add(plan.Subtotal)

			id, err := s.notifications.RecordTx(tx, plan.SellerID, constants.NotificationEventOrderCreated, models.JSON{
				"order_id":        order.ID,
				"seller_order_id": so.ID,
				"total_amount":    so.TotalAmount.String(),
			})
			if err != nil {
				return err
			}
			notificationIDs = append(notificationIDs, id)
		}

		// 总额固化：商品小计 + 配送费，之后不再重算
		order.TotalAmount = models.NewMoneyFromDecimal(subtotal.Add(totals.DeliveryCost.Decimal))
		if err := orderRepo.Update(order.ID, map[string]interface{}{
			"total_amount": order.TotalAmount,
			"updated_at":   now,
		}); err != nil {
			return err
		}

		if err := cartRepo.DeleteByIDs(input.UserID, input.CartItemIDs); err != nil {
			return err
		}

		id, err := s.notifications.RecordTx(tx, input.UserID, constants.NotificationEventOrderCreated, models.JSON{
			"order_id":     order.ID,
			"uuid":         order.UUID,
			"total_amount": order.TotalAmount.String(),
			"currency":     order.Currency,
		})
		if err != nil {
			return err
		}
		notificationIDs = append(notificationIDs, id)
		return nil
	})
	if err != nil {
		return nil, s.wrapCreateError(err, input)
	}

	s.notifications.EnqueueDispatch(notificationIDs...)
	return s.orderRepo.GetByID(order.ID)
}

// wrapCreateError 领域错误原样返回，基础设施错误记日志后统一降级
func (s *OrderService) wrapCreateError(err error, input CreateOrderInput) error {
	switch {
	case errors.Is(err, ErrCartEmpty),
		errors.Is(err, ErrCartMismatch),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrAddressNotFound),
		errors.Is(err, ErrProductUnavailable),
		errors.Is(err, ErrPaymentMethodInvalid):
		return err
	}
	logger.Errorw("order_create_failed",
		"user_id", input.UserID,
		"cart_item_ids", input.CartItemIDs,
		"payment_method", input.PaymentMethod,
		"client_ip", input.ClientIP,
		"error", err,
	)
	return ErrOrderCreateFailed
}

// buildSellerOrderPlans 按卖家分组购物车项，生成子订单计划
func buildSellerOrderPlans(cartItems []models.CartItem, totals *Totals, now time.Time) []sellerOrderPlan {
	grouped := make(map[uint]*sellerOrderPlan)
	for _, item := range cartItems {
		unit := totals.UnitPrices[item.ProductID]
		plan, ok := grouped[item.Product.UserID]
		if !ok {
			plan = &sellerOrderPlan{SellerID: item.Product.UserID, Subtotal: decimal.Zero}
			grouped[item.Product.UserID] = plan
		}
		plan.Items = append(plan.Items, models.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Product.Title,
			Price:     unit,
			Quantity:  item.Quantity,
			CreatedAt: now,
			UpdatedAt: now,
		})
		plan.Subtotal = plan.Subtotal.Add(unit.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	plans := make([]sellerOrderPlan, 0, len(grouped))
	for _, plan := range grouped {
		plans = append(plans, *plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].SellerID < plans[j].SellerID })
	return plans
}

// AssignCourier 卖家为订单指派配送员
func (s *OrderService) AssignCourier(sellerID, orderID, courierID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if !orderHasSeller(order, sellerID) {
		return ErrPermissionDenied
	}

	courier, err := s.userRepo.GetByIDAndRole(courierID, constants.RoleCourier)
	if err != nil {
		return err
	}
	if courier == nil {
		return ErrCourierNotFound
	}

	return s.orderRepo.Update(order.ID, map[string]interface{}{
		"courier_id": courier.ID,
		"updated_at": time.Now(),
	})
}

// CancelOrder 客户取消自己的待处理订单，库存回补
func (s *OrderService) CancelOrder(userID, orderID uint) error {
	var notificationIDs []uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		order, err := orderRepo.GetByIDAndUser(orderID, userID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status != constants.OrderStatusPending {
			return ErrOrderNotCancelable
		}

		now := time.Now()
		for _, so := range order.SellerOrders {
			if so.Status == constants.OrderStatusCanceled {
				continue
			}
			if err := orderRepo.UpdateSellerOrder(so.ID, map[string]interface{}{
				"status":     constants.OrderStatusCanceled,
				"updated_at": now,
			}); err != nil {
				return err
			}
			id, err := s.notifications.RecordTx(tx, so.SellerID, constants.NotificationEventOrderStatusUpdated, models.JSON{
				"order_id":        order.ID,
				"seller_order_id": so.ID,
				"old_status":      so.Status,
				"new_status":      constants.OrderStatusCanceled,
			})
			if err != nil {
				return err
			}
			notificationIDs = append(notificationIDs, id)
		}

		for _, item := range order.Items {
			if _, err := productRepo.RestoreStock(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := orderRepo.Update(order.ID, map[string]interface{}{
			"status":      constants.OrderStatusCanceled,
			"canceled_at": now,
			"updated_at":  now,
		}); err != nil {
			return err
		}

		id, err := s.notifications.RecordTx(tx, userID, constants.NotificationEventOrderStatusUpdated, models.JSON{
			"order_id":   order.ID,
			"old_status": constants.OrderStatusPending,
			"new_status": constants.OrderStatusCanceled,
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

// GetOrderByUser 查询用户订单详情
func (s *OrderService) GetOrderByUser(orderID, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersByUser 分页查询用户订单
func (s *OrderService) ListOrdersByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(filter)
}

// ListOrdersByCourier 分页查询快递员名下订单
func (s *OrderService) ListOrdersByCourier(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByCourier(filter)
}

// ListSellerOrders 分页查询卖家子订单
func (s *OrderService) ListSellerOrders(filter repository.SellerOrderListFilter) ([]models.SellerOrder, int64, error) {
	return s.orderRepo.ListBySeller(filter)
}

func orderHasSeller(order *models.Order, sellerID uint) bool {
	for _, so := range order.SellerOrders {
		if so.SellerID == sellerID {
			return true
		}
	}
	return false
}

// generateToken 生成指定长度的随机令牌
func generateToken(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	var out []byte
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			out = append(out, charset[0])
			continue
		}
		out = append(out, charset[n.Int64()])
	}
	return string(out)
}

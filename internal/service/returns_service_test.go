package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/queue"
	"github.com/bazar-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupReturnsServiceTest(t *testing.T) (*ReturnsService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:returns_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Address{},
		&models.Product{},
		&models.Order{},
		&models.SellerOrder{},
		&models.OrderItem{},
		&models.OrderReturn{},
		&models.ReturnItem{},
		&models.ReturnToken{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}
	notifications := NewNotificationService(repository.NewNotificationRepository(db), queueClient, nil)
	svc := NewReturnsService(
		repository.NewReturnRepository(db),
		repository.NewOrderRepository(db),
		notifications,
		queueClient,
		ReturnsConfig{
			PeriodDays:    14,
			LogisticsFee:  models.NewMoneyFromDecimal(decimal.NewFromInt(3)),
			QRLength:      32,
			QRExpireHours: 24,
		},
	)
	return svc, db
}

// seedCompletedOrder 直接落一张已完成订单：客户 1、卖家 2，两个订单项（单价 10×2 件、20×1 件）
func seedCompletedOrder(t *testing.T, db *gorm.DB) (*models.Order, []models.OrderItem) {
	t.Helper()
	now := time.Now()
	order := &models.Order{
		UUID:          fmt.Sprintf("ord-%d", time.Now().UnixNano()),
		UserID:        1,
		UserAddressID: 1,
		Status:        constants.OrderStatusCompleted,
		TotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(45)),
		DeliveryCost:  models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		Currency:      "USD",
		PaymentMethod: constants.PaymentMethodCard,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	so := &models.SellerOrder{
		OrderID:     order.ID,
		SellerID:    2,
		Status:      constants.OrderStatusCompleted,
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(40)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(so).Error; err != nil {
		t.Fatalf("create seller order failed: %v", err)
	}
	items := []models.OrderItem{
		{OrderID: order.ID, SellerOrderID: so.ID, ProductID: 11, Title: "商品A", Price: models.NewMoneyFromDecimal(decimal.NewFromInt(10)), Quantity: 2, CreatedAt: now, UpdatedAt: now},
		{OrderID: order.ID, SellerOrderID: so.ID, ProductID: 12, Title: "商品B", Price: models.NewMoneyFromDecimal(decimal.NewFromInt(20)), Quantity: 1, CreatedAt: now, UpdatedAt: now},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("create order item failed: %v", err)
		}
	}
	return order, items
}

func TestCreateReturnComputesRefundAndFee(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	order, items := seedCompletedOrder(t, db)

	ret, err := svc.CreateReturn(CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: constants.ReturnMethodCourier,
		Items: []CreateReturnItem{
			{OrderItemID: items[0].ID, Quantity: 2, Reason: constants.ReturnReasonDefective},
			{OrderItemID: items[1].ID, Quantity: 1, Reason: constants.ReturnReasonChangedMind},
		},
	})
	if err != nil {
		t.Fatalf("create return failed: %v", err)
	}
	if ret.Status != constants.ReturnStatusPending {
		t.Fatalf("unexpected status: %s", ret.Status)
	}
	if ret.SellerID != 2 {
		t.Fatalf("unexpected seller: %d", ret.SellerID)
	}
	// 应退金额按下单快照价：2×10 + 1×20
	if !ret.RefundAmount.Decimal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected refund amount: %s", ret.RefundAmount.String())
	}
	// 只有非免费原因的明细收物流费
	if !ret.LogisticsCost.Decimal.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected logistics cost: %s", ret.LogisticsCost.String())
	}
	if len(ret.Items) != 2 {
		t.Fatalf("expected 2 return items, got %d", len(ret.Items))
	}

	var pending int64
	if err := db.Model(&models.Notification{}).Where("event_type = ?", constants.NotificationEventReturnRequested).Count(&pending).Error; err != nil {
		t.Fatalf("count notifications failed: %v", err)
	}
	if pending != 2 {
		t.Fatalf("expected notifications for customer and seller, got %d", pending)
	}
}

func TestCreateReturnWindowClosed(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	order, items := seedCompletedOrder(t, db)
	stale := time.Now().Add(-15 * 24 * time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("updated_at", stale).Error; err != nil {
		t.Fatalf("age order failed: %v", err)
	}

	_, err := svc.CreateReturn(CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: constants.ReturnMethodSelf,
		Items:        []CreateReturnItem{{OrderItemID: items[0].ID, Quantity: 1, Reason: constants.ReturnReasonDefective}},
	})
	if !errors.Is(err, ErrReturnWindowClosed) {
		t.Fatalf("expected window closed, got: %v", err)
	}
}

func TestCreateReturnRequiresCompletedOrder(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	order, items := seedCompletedOrder(t, db)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", constants.OrderStatusShipped).Error; err != nil {
		t.Fatalf("update order failed: %v", err)
	}

	_, err := svc.CreateReturn(CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: constants.ReturnMethodSelf,
		Items:        []CreateReturnItem{{OrderItemID: items[0].ID, Quantity: 1, Reason: constants.ReturnReasonDefective}},
	})
	if !errors.Is(err, ErrReturnOrderIneligible) {
		t.Fatalf("expected ineligible order, got: %v", err)
	}
}

func TestCreateReturnBlocksActiveItem(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	order, items := seedCompletedOrder(t, db)
	input := CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: constants.ReturnMethodCourier,
		Items:        []CreateReturnItem{{OrderItemID: items[0].ID, Quantity: 1, Reason: constants.ReturnReasonDefective}},
	}

	first, err := svc.CreateReturn(input)
	if err != nil {
		t.Fatalf("first return failed: %v", err)
	}
	if _, err := svc.CreateReturn(input); !errors.Is(err, ErrReturnItemTaken) {
		t.Fatalf("expected item taken, got: %v", err)
	}

	// 被拒绝的申请释放订单项，可重新发起
	if err := svc.RejectReturn(2, first.ID, "照片不清晰"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if _, err := svc.CreateReturn(input); err != nil {
		t.Fatalf("return after rejection failed: %v", err)
	}
}

func TestCreateReturnSingleSellerOnly(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	order, items := seedCompletedOrder(t, db)

	now := time.Now()
	otherSO := &models.SellerOrder{
		OrderID:     order.ID,
		SellerID:    3,
		Status:      constants.OrderStatusCompleted,
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(otherSO).Error; err != nil {
		t.Fatalf("create seller order failed: %v", err)
	}
	otherItem := &models.OrderItem{
		OrderID:       order.ID,
		SellerOrderID: otherSO.ID,
		ProductID:     13,
		Title:         "商品C",
		Price:         models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
		Quantity:      1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(otherItem).Error; err != nil {
		t.Fatalf("create order item failed: %v", err)
	}

	_, err := svc.CreateReturn(CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: constants.ReturnMethodCourier,
		Items: []CreateReturnItem{
			{OrderItemID: items[0].ID, Quantity: 1, Reason: constants.ReturnReasonDefective},
			{OrderItemID: otherItem.ID, Quantity: 1, Reason: constants.ReturnReasonDefective},
		},
	})
	if !errors.Is(err, ErrReturnItemInvalid) {
		t.Fatalf("expected invalid item for cross-seller return, got: %v", err)
	}
}

func TestCreateReturnQuantityBounds(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	order, items := seedCompletedOrder(t, db)

	_, err := svc.CreateReturn(CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: constants.ReturnMethodSelf,
		Items:        []CreateReturnItem{{OrderItemID: items[1].ID, Quantity: 2, Reason: constants.ReturnReasonDefective}},
	})
	if !errors.Is(err, ErrReturnItemInvalid) {
		t.Fatalf("expected invalid quantity, got: %v", err)
	}
	_, err = svc.CreateReturn(CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: constants.ReturnMethodSelf,
		Items:        []CreateReturnItem{{OrderItemID: items[0].ID, Quantity: 0, Reason: constants.ReturnReasonDefective}},
	})
	if !errors.Is(err, ErrReturnItemInvalid) {
		t.Fatalf("expected invalid quantity, got: %v", err)
	}
}

func TestApproveReturnIssuesOutboundToken(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	order, items := seedCompletedOrder(t, db)
	ret, err := svc.CreateReturn(CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: constants.ReturnMethodCourier,
		Items:        []CreateReturnItem{{OrderItemID: items[0].ID, Quantity: 1, Reason: constants.ReturnReasonDefective}},
	})
	if err != nil {
		t.Fatalf("create return failed: %v", err)
	}

	// 非归属卖家不能审批
	if err := svc.ApproveReturn(3, ret.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got: %v", err)
	}

	if err := svc.ApproveReturn(2, ret.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	reloaded, err := svc.GetReturn(StatusActor{UserID: 2, Role: constants.RoleSeller}, ret.ID)
	if err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	if reloaded.Status != constants.ReturnStatusApproved {
		t.Fatalf("unexpected status: %s", reloaded.Status)
	}

	var token models.ReturnToken
	if err := db.Where("return_id = ? AND kind = ?", ret.ID, constants.ReturnTokenKindOutbound).First(&token).Error; err != nil {
		t.Fatalf("load token failed: %v", err)
	}
	if !strings.HasPrefix(token.Code, "RETURN_") {
		t.Fatalf("unexpected token code: %s", token.Code)
	}
	if token.ExpiresAt == nil || !token.ExpiresAt.After(time.Now()) {
		t.Fatalf("token should carry future expiry")
	}

	// 重复审批被状态机拦下
	if err := svc.ApproveReturn(2, ret.ID); !errors.Is(err, ErrReturnStatusInvalid) {
		t.Fatalf("expected invalid status on re-approve, got: %v", err)
	}
}

func TestRejectReturnIsTerminal(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	order, items := seedCompletedOrder(t, db)
	ret, err := svc.CreateReturn(CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: constants.ReturnMethodSelf,
		Items:        []CreateReturnItem{{OrderItemID: items[0].ID, Quantity: 1, Reason: constants.ReturnReasonOther}},
	})
	if err != nil {
		t.Fatalf("create return failed: %v", err)
	}

	if err := svc.RejectReturn(2, ret.ID, "商品已使用"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	reloaded, err := svc.GetReturn(StatusActor{UserID: 1, Role: constants.RoleCustomer}, ret.ID)
	if err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	if reloaded.Status != constants.ReturnStatusRejected {
		t.Fatalf("unexpected status: %s", reloaded.Status)
	}
	if reloaded.RejectionReason != "商品已使用" {
		t.Fatalf("rejection reason not stored: %s", reloaded.RejectionReason)
	}

	if err := svc.ApproveReturn(2, ret.ID); !errors.Is(err, ErrReturnStatusInvalid) {
		t.Fatalf("expected invalid status after rejection, got: %v", err)
	}
}

func TestGetReturnScopesByRole(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	order, items := seedCompletedOrder(t, db)
	ret, err := svc.CreateReturn(CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: constants.ReturnMethodSelf,
		Items:        []CreateReturnItem{{OrderItemID: items[0].ID, Quantity: 1, Reason: constants.ReturnReasonDefective}},
	})
	if err != nil {
		t.Fatalf("create return failed: %v", err)
	}

	if _, err := svc.GetReturn(StatusActor{UserID: 1, Role: constants.RoleCustomer}, ret.ID); err != nil {
		t.Fatalf("owner should read own return: %v", err)
	}
	if _, err := svc.GetReturn(StatusActor{UserID: 7, Role: constants.RoleCustomer}, ret.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for stranger, got: %v", err)
	}
	if _, err := svc.GetReturn(StatusActor{UserID: 3, Role: constants.RoleSeller}, ret.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for other seller, got: %v", err)
	}
}

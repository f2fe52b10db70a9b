package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/payment/payhub"
	"github.com/bazar-next/internal/queue"
	"github.com/bazar-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// stubRefundGateway 记录调用的假网关
type stubRefundGateway struct {
	calls []payhub.RefundInput
	fail  bool
}

func (g *stubRefundGateway) Refund(ctx context.Context, input payhub.RefundInput) (*payhub.RefundResult, error) {
	g.calls = append(g.calls, input)
	if g.fail {
		return nil, payhub.ErrRequestFailed
	}
	return &payhub.RefundResult{TradeNo: fmt.Sprintf("T%d", len(g.calls))}, nil
}

func setupRefundServiceTest(t *testing.T) (*RefundService, *stubRefundGateway, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:refund_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
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
	gateway := &stubRefundGateway{}
	svc := NewRefundService(
		repository.NewReturnRepository(db),
		repository.NewOrderRepository(db),
		notifications,
		gateway,
	)
	return svc, gateway, db
}

func seedRefundableReturn(t *testing.T, db *gorm.DB) *models.OrderReturn {
	t.Helper()
	now := time.Now()
	order := &models.Order{
		UUID:          fmt.Sprintf("ord-%d", time.Now().UnixNano()),
		UserID:        1,
		UserAddressID: 1,
		Status:        constants.OrderStatusCompleted,
		TotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(45)),
		Currency:      "USD",
		PaymentMethod: constants.PaymentMethodCard,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	ret := &models.OrderReturn{
		OrderID:      order.ID,
		UserID:       1,
		SellerID:     2,
		Status:       constants.ReturnStatusRefundInitiated,
		RefundAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(40)),
		ReturnMethod: constants.ReturnMethodCourier,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(ret).Error; err != nil {
		t.Fatalf("create return failed: %v", err)
	}
	return ret
}

func TestProcessRefundCompletes(t *testing.T) {
	svc, gateway, db := setupRefundServiceTest(t)
	ret := seedRefundableReturn(t, db)

	if err := svc.ProcessRefund(context.Background(), ret.ID); err != nil {
		t.Fatalf("process refund failed: %v", err)
	}
	if len(gateway.calls) != 1 {
		t.Fatalf("expected 1 gateway call, got %d", len(gateway.calls))
	}
	call := gateway.calls[0]
	if call.RefundNo != fmt.Sprintf("RET_%d", ret.ID) {
		t.Fatalf("unexpected refund no: %s", call.RefundNo)
	}
	if call.Amount != "40.00" || call.Currency != "USD" {
		t.Fatalf("unexpected refund request: %+v", call)
	}

	var reloaded models.OrderReturn
	if err := db.First(&reloaded, ret.ID).Error; err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	if reloaded.Status != constants.ReturnStatusCompleted {
		t.Fatalf("expected completed, got %s", reloaded.Status)
	}
	if reloaded.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}

	// 买卖双方各一条退款完成通知
	var count int64
	if err := db.Model(&models.Notification{}).Where("event_type = ?", constants.NotificationEventRefundCompleted).Count(&count).Error; err != nil {
		t.Fatalf("count notifications failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 notifications, got %d", count)
	}
}

func TestProcessRefundIdempotent(t *testing.T) {
	svc, gateway, db := setupRefundServiceTest(t)
	ret := seedRefundableReturn(t, db)

	if err := svc.ProcessRefund(context.Background(), ret.ID); err != nil {
		t.Fatalf("first refund failed: %v", err)
	}
	// 任务重复投递：状态复核让第二次成为空操作
	if err := svc.ProcessRefund(context.Background(), ret.ID); err != nil {
		t.Fatalf("second refund should be a no-op: %v", err)
	}
	if len(gateway.calls) != 1 {
		t.Fatalf("gateway must be called exactly once, got %d", len(gateway.calls))
	}
}

func TestProcessRefundGatewayFailureKeepsState(t *testing.T) {
	svc, gateway, db := setupRefundServiceTest(t)
	gateway.fail = true
	ret := seedRefundableReturn(t, db)

	err := svc.ProcessRefund(context.Background(), ret.ID)
	if !errors.Is(err, ErrRefundFailed) {
		t.Fatalf("expected refund failed, got: %v", err)
	}

	// 状态保持在 refund_initiated，等待队列按固定间隔重试
	var reloaded models.OrderReturn
	if err := db.First(&reloaded, ret.ID).Error; err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	if reloaded.Status != constants.ReturnStatusRefundInitiated {
		t.Fatalf("expected refund_initiated after failure, got %s", reloaded.Status)
	}
	if reloaded.CompletedAt != nil {
		t.Fatalf("completed_at must stay empty after failure")
	}

	// 网关恢复后重试成功
	gateway.fail = false
	if err := svc.ProcessRefund(context.Background(), ret.ID); err != nil {
		t.Fatalf("retry refund failed: %v", err)
	}
	if err := db.First(&reloaded, ret.ID).Error; err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	if reloaded.Status != constants.ReturnStatusCompleted {
		t.Fatalf("expected completed after retry, got %s", reloaded.Status)
	}
}

func TestProcessRefundMissingReturn(t *testing.T) {
	svc, gateway, _ := setupRefundServiceTest(t)
	if err := svc.ProcessRefund(context.Background(), 999); err != nil {
		t.Fatalf("missing return should not error: %v", err)
	}
	if len(gateway.calls) != 0 {
		t.Fatalf("gateway must not be called for missing return")
	}
}

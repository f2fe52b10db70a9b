package service

import (
	"errors"
	"testing"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/models"

	"gorm.io/gorm"
)

// createApprovedReturn 建一条已审批的退货并返回寄出码
func createApprovedReturn(t *testing.T, svc *ReturnsService, db *gorm.DB, method string) (*models.OrderReturn, string) {
	t.Helper()
	order, items := seedCompletedOrder(t, db)
	ret, err := svc.CreateReturn(CreateReturnInput{
		UserID:       1,
		OrderID:      order.ID,
		ReturnMethod: method,
		Items:        []CreateReturnItem{{OrderItemID: items[0].ID, Quantity: 1, Reason: constants.ReturnReasonDefective}},
	})
	if err != nil {
		t.Fatalf("create return failed: %v", err)
	}
	if err := svc.ApproveReturn(2, ret.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	var token models.ReturnToken
	if err := db.Where("return_id = ? AND kind = ?", ret.ID, constants.ReturnTokenKindOutbound).First(&token).Error; err != nil {
		t.Fatalf("load token failed: %v", err)
	}
	return ret, token.Code
}

func TestScanReturnCourierFlow(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	ret, code := createApprovedReturn(t, svc, db, constants.ReturnMethodCourier)

	customer := StatusActor{UserID: 1, Role: constants.RoleCustomer}
	seller := StatusActor{UserID: 2, Role: constants.RoleSeller}

	// 第一程：客户把货交给配送方，扫码发货
	scanned, err := svc.ScanReturnQR(customer, code)
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if scanned.Status != constants.ReturnStatusInTransit {
		t.Fatalf("expected in_transit, got %s", scanned.Status)
	}

	// 第二程只有卖家能签收
	if _, err := svc.ScanReturnQR(customer, code); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for customer receive, got: %v", err)
	}
	scanned, err = svc.ScanReturnQR(seller, code)
	if err != nil {
		t.Fatalf("seller scan failed: %v", err)
	}
	if scanned.Status != constants.ReturnStatusReceived {
		t.Fatalf("expected received, got %s", scanned.Status)
	}

	// 已签收后同一个码不再有可走的推进
	if _, err := svc.ScanReturnQR(seller, code); !errors.Is(err, ErrReturnStatusInvalid) {
		t.Fatalf("expected no transition after receive, got: %v", err)
	}

	// 验货合格级联到退款发起，之后任何扫码都被终态拦截
	if err := svc.MarkConditionOK(2, ret.ID); err != nil {
		t.Fatalf("mark condition ok failed: %v", err)
	}
	if _, err := svc.ScanReturnQR(seller, code); !errors.Is(err, ErrReturnTerminal) {
		t.Fatalf("expected terminal guard on replay, got: %v", err)
	}
}

func TestScanReturnSelfFlow(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	_, code := createApprovedReturn(t, svc, db, constants.ReturnMethodSelf)

	// 自送没有配送程：客户扫码无效，卖家扫码即签收
	if _, err := svc.ScanReturnQR(StatusActor{UserID: 1, Role: constants.RoleCustomer}, code); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for customer, got: %v", err)
	}
	scanned, err := svc.ScanReturnQR(StatusActor{UserID: 2, Role: constants.RoleSeller}, code)
	if err != nil {
		t.Fatalf("seller scan failed: %v", err)
	}
	if scanned.Status != constants.ReturnStatusReceived {
		t.Fatalf("expected received, got %s", scanned.Status)
	}
}

func TestScanReturnUnknownCode(t *testing.T) {
	svc, _ := setupReturnsServiceTest(t)
	_, err := svc.ScanReturnQR(StatusActor{UserID: 1, Role: constants.RoleCustomer}, "RETURN_does_not_exist")
	if !errors.Is(err, ErrReturnQRUnknown) {
		t.Fatalf("expected unknown code, got: %v", err)
	}
}

func TestScanReturnExpiredToken(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	_, code := createApprovedReturn(t, svc, db, constants.ReturnMethodCourier)

	expired := time.Now().Add(-time.Minute)
	if err := db.Model(&models.ReturnToken{}).Where("code = ?", code).Update("expires_at", expired).Error; err != nil {
		t.Fatalf("expire token failed: %v", err)
	}
	if _, err := svc.ScanReturnQR(StatusActor{UserID: 1, Role: constants.RoleCustomer}, code); !errors.Is(err, ErrReturnQRExpired) {
		t.Fatalf("expected expired token, got: %v", err)
	}
}

func TestScanReturnCrossTenantDenied(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	_, code := createApprovedReturn(t, svc, db, constants.ReturnMethodCourier)

	// 别的卖家和别的客户都不能碰这条退货
	if _, err := svc.ScanReturnQR(StatusActor{UserID: 3, Role: constants.RoleSeller}, code); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for other seller, got: %v", err)
	}
	if _, err := svc.ScanReturnQR(StatusActor{UserID: 7, Role: constants.RoleCustomer}, code); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied for other customer, got: %v", err)
	}
}

func TestMarkConditionOKCascadesToRefund(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	ret, code := createApprovedReturn(t, svc, db, constants.ReturnMethodSelf)
	if _, err := svc.ScanReturnQR(StatusActor{UserID: 2, Role: constants.RoleSeller}, code); err != nil {
		t.Fatalf("receive scan failed: %v", err)
	}

	if err := svc.MarkConditionOK(2, ret.ID); err != nil {
		t.Fatalf("mark condition ok failed: %v", err)
	}
	reloaded, err := svc.GetReturn(StatusActor{UserID: 2, Role: constants.RoleSeller}, ret.ID)
	if err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	// 过渡态不落地，对外可见的是退款已发起
	if reloaded.Status != constants.ReturnStatusRefundInitiated {
		t.Fatalf("expected refund_initiated, got %s", reloaded.Status)
	}

	for _, event := range []string{constants.NotificationEventReturnConditionOK, constants.NotificationEventRefundInitiated} {
		var count int64
		if err := db.Model(&models.Notification{}).Where("event_type = ?", event).Count(&count).Error; err != nil {
			t.Fatalf("count notifications failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected 1 %s notification, got %d", event, count)
		}
	}

	// 重复验货被状态机拦下
	if err := svc.MarkConditionOK(2, ret.ID); !errors.Is(err, ErrReturnStatusInvalid) {
		t.Fatalf("expected invalid status on repeat, got: %v", err)
	}
}

func TestMarkConditionBadIssuesBackToken(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	ret, code := createApprovedReturn(t, svc, db, constants.ReturnMethodSelf)
	if _, err := svc.ScanReturnQR(StatusActor{UserID: 2, Role: constants.RoleSeller}, code); err != nil {
		t.Fatalf("receive scan failed: %v", err)
	}

	photos := []string{"https://cdn.example.com/damage1.jpg", "https://cdn.example.com/damage2.jpg"}
	if err := svc.MarkConditionBad(2, ret.ID, "包装破损", photos); err != nil {
		t.Fatalf("mark condition bad failed: %v", err)
	}

	reloaded, err := svc.GetReturn(StatusActor{UserID: 2, Role: constants.RoleSeller}, ret.ID)
	if err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	if reloaded.Status != constants.ReturnStatusConditionBad {
		t.Fatalf("expected condition_bad, got %s", reloaded.Status)
	}
	if reloaded.RejectionReason != "包装破损" {
		t.Fatalf("rejection reason not stored: %s", reloaded.RejectionReason)
	}
	if reloaded.ExpiresAt == nil || !reloaded.ExpiresAt.After(time.Now()) {
		t.Fatalf("disposal deadline not armed")
	}
	if len(reloaded.Items) == 0 || len(reloaded.Items[0].Photos) != 2 {
		t.Fatalf("inspection photos not attached")
	}

	// 退回客户的码可以把状态推到寄回途中
	var backToken models.ReturnToken
	if err := db.Where("return_id = ? AND kind = ?", ret.ID, constants.ReturnTokenKindBackToCustomer).First(&backToken).Error; err != nil {
		t.Fatalf("load back token failed: %v", err)
	}
	scanned, err := svc.ScanReturnQR(StatusActor{UserID: 1, Role: constants.RoleCustomer}, backToken.Code)
	if err != nil {
		t.Fatalf("back scan failed: %v", err)
	}
	if scanned.Status != constants.ReturnStatusInTransitBack {
		t.Fatalf("expected in_transit_back, got %s", scanned.Status)
	}
}

func TestMarkConditionBadAllowsReinspection(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	ret, code := createApprovedReturn(t, svc, db, constants.ReturnMethodSelf)
	if _, err := svc.ScanReturnQR(StatusActor{UserID: 2, Role: constants.RoleSeller}, code); err != nil {
		t.Fatalf("receive scan failed: %v", err)
	}
	if err := svc.MarkConditionBad(2, ret.ID, "初检不合格", nil); err != nil {
		t.Fatalf("mark condition bad failed: %v", err)
	}

	// 复检翻案：condition_bad 仍可走合格路径
	if err := svc.MarkConditionOK(2, ret.ID); err != nil {
		t.Fatalf("reinspection failed: %v", err)
	}
	reloaded, err := svc.GetReturn(StatusActor{UserID: 2, Role: constants.RoleSeller}, ret.ID)
	if err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	if reloaded.Status != constants.ReturnStatusRefundInitiated {
		t.Fatalf("expected refund_initiated, got %s", reloaded.Status)
	}
}

func TestDisposeExpiredReturns(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)

	retA, codeA := createApprovedReturn(t, svc, db, constants.ReturnMethodSelf)
	if _, err := svc.ScanReturnQR(StatusActor{UserID: 2, Role: constants.RoleSeller}, codeA); err != nil {
		t.Fatalf("receive scan failed: %v", err)
	}
	if err := svc.MarkConditionBad(2, retA.ID, "无法二次销售", nil); err != nil {
		t.Fatalf("mark condition bad failed: %v", err)
	}

	retB, codeB := createApprovedReturn(t, svc, db, constants.ReturnMethodSelf)
	if _, err := svc.ScanReturnQR(StatusActor{UserID: 2, Role: constants.RoleSeller}, codeB); err != nil {
		t.Fatalf("receive scan failed: %v", err)
	}
	if err := svc.MarkConditionBad(2, retB.ID, "无法二次销售", nil); err != nil {
		t.Fatalf("mark condition bad failed: %v", err)
	}

	// 只把 A 的取回期限推到过去
	expired := time.Now().Add(-time.Hour)
	if err := db.Model(&models.OrderReturn{}).Where("id = ?", retA.ID).Update("expires_at", expired).Error; err != nil {
		t.Fatalf("expire return failed: %v", err)
	}

	if got := svc.DisposeExpiredReturns(time.Now()); got != 1 {
		t.Fatalf("expected 1 disposal, got %d", got)
	}

	reloadedA, err := svc.GetReturn(StatusActor{UserID: 2, Role: constants.RoleSeller}, retA.ID)
	if err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	if reloadedA.Status != constants.ReturnStatusRejectedByWarehouse {
		t.Fatalf("expected rejected_by_warehouse, got %s", reloadedA.Status)
	}
	reloadedB, err := svc.GetReturn(StatusActor{UserID: 2, Role: constants.RoleSeller}, retB.ID)
	if err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	if reloadedB.Status != constants.ReturnStatusConditionBad {
		t.Fatalf("unexpired return should be untouched, got %s", reloadedB.Status)
	}

	var disposedCount int64
	if err := db.Model(&models.Notification{}).Where("event_type = ?", constants.NotificationEventReturnDisposed).Count(&disposedCount).Error; err != nil {
		t.Fatalf("count notifications failed: %v", err)
	}
	if disposedCount != 1 {
		t.Fatalf("expected 1 disposal notification, got %d", disposedCount)
	}

	// 幂等：再跑一轮没有新目标
	if got := svc.DisposeExpiredReturns(time.Now()); got != 0 {
		t.Fatalf("expected no further disposals, got %d", got)
	}
}

func TestReenqueueStaleRefunds(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	now := time.Now()

	seedReturn := func(status string) *models.OrderReturn {
		ret := &models.OrderReturn{
			OrderID:      1,
			UserID:       1,
			SellerID:     2,
			Status:       status,
			ReturnMethod: constants.ReturnMethodSelf,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := db.Create(ret).Error; err != nil {
			t.Fatalf("create return failed: %v", err)
		}
		return ret
	}
	stale := seedReturn(constants.ReturnStatusRefundInitiated)
	// 窗口内的行与已完成的行都不应被重投
	seedReturn(constants.ReturnStatusRefundInitiated)
	completed := seedReturn(constants.ReturnStatusCompleted)

	// 只把 stale 的更新时间推到补偿窗口之外
	if err := db.Model(&models.OrderReturn{}).Where("id = ?", stale.ID).
		Update("updated_at", now.Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate return failed: %v", err)
	}
	if err := db.Model(&models.OrderReturn{}).Where("id = ?", completed.ID).
		Update("updated_at", now.Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate return failed: %v", err)
	}

	cutoff := now.Add(-10 * time.Minute)
	if got := svc.ReenqueueStaleRefunds(cutoff, 100); got != 1 {
		t.Fatalf("expected 1 reenqueued refund, got %d", got)
	}

	// 状态没推进时每轮都会再投，消费侧的状态复核保证幂等
	if got := svc.ReenqueueStaleRefunds(cutoff, 100); got != 1 {
		t.Fatalf("expected repeat sweep to reenqueue again, got %d", got)
	}
}

func TestUpdateReturnStatusByName(t *testing.T) {
	svc, db := setupReturnsServiceTest(t)
	ret, code := createApprovedReturn(t, svc, db, constants.ReturnMethodSelf)
	if _, err := svc.ScanReturnQR(StatusActor{UserID: 2, Role: constants.RoleSeller}, code); err != nil {
		t.Fatalf("receive scan failed: %v", err)
	}
	if err := svc.MarkConditionBad(2, ret.ID, "磨损明显", nil); err != nil {
		t.Fatalf("mark condition bad failed: %v", err)
	}

	// 不在白名单内的推进被拒绝
	if err := svc.UpdateReturnStatusByName(2, ret.ID, constants.ReturnStatusCompleted); !errors.Is(err, ErrReturnStatusInvalid) {
		t.Fatalf("expected invalid transition, got: %v", err)
	}
	if err := svc.UpdateReturnStatusByName(2, ret.ID, constants.ReturnStatusInTransitBack); err != nil {
		t.Fatalf("manual send back failed: %v", err)
	}
	reloaded, err := svc.GetReturn(StatusActor{UserID: 2, Role: constants.RoleSeller}, ret.ID)
	if err != nil {
		t.Fatalf("reload return failed: %v", err)
	}
	if reloaded.Status != constants.ReturnStatusInTransitBack {
		t.Fatalf("expected in_transit_back, got %s", reloaded.Status)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/models"
	"github.com/bazar-next/internal/queue"
	"github.com/bazar-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// countingNotifier 记录投递次数，可注入失败
type countingNotifier struct {
	delivered int
	fail      bool
}

func (n *countingNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.delivered++
	return nil
}

func setupNotificationServiceTest(t *testing.T, notifier Notifier) (*NotificationService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:notification_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}
	return NewNotificationService(repository.NewNotificationRepository(db), queueClient, notifier), db
}

func TestNotificationDispatchMarksSent(t *testing.T) {
	notifier := &countingNotifier{}
	svc, db := setupNotificationServiceTest(t, notifier)

	id, err := svc.RecordTx(db, 1, constants.NotificationEventOrderCreated, models.JSON{"order_id": 1})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := svc.Dispatch(context.Background(), id); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	var n models.Notification
	if err := db.First(&n, id).Error; err != nil {
		t.Fatalf("reload notification failed: %v", err)
	}
	if n.Status != constants.NotificationStatusSent {
		t.Fatalf("expected sent, got %s", n.Status)
	}
	if n.SentAt == nil {
		t.Fatalf("sent_at not set")
	}

	// 已投递的行再投递是空操作
	if err := svc.Dispatch(context.Background(), id); err != nil {
		t.Fatalf("re-dispatch should be a no-op: %v", err)
	}
	if notifier.delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", notifier.delivered)
	}
}

func TestNotificationDispatchMarksFailed(t *testing.T) {
	notifier := &countingNotifier{fail: true}
	svc, db := setupNotificationServiceTest(t, notifier)

	id, err := svc.RecordTx(db, 1, constants.NotificationEventReturnRequested, models.JSON{"return_id": 1})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := svc.Dispatch(context.Background(), id); err == nil {
		t.Fatalf("expected dispatch error")
	}

	var n models.Notification
	if err := db.First(&n, id).Error; err != nil {
		t.Fatalf("reload notification failed: %v", err)
	}
	if n.Status != constants.NotificationStatusFailed {
		t.Fatalf("expected failed, got %s", n.Status)
	}
	if n.LastError == "" {
		t.Fatalf("last_error not recorded")
	}
}

func TestNotificationDispatchPendingSweep(t *testing.T) {
	notifier := &countingNotifier{}
	svc, db := setupNotificationServiceTest(t, notifier)

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordTx(db, uint(i+1), constants.NotificationEventOrderCreated, models.JSON{"n": i}); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	svc.DispatchPending(context.Background(), 10)

	if notifier.delivered != 3 {
		t.Fatalf("expected 3 deliveries, got %d", notifier.delivered)
	}
	var pending int64
	if err := db.Model(&models.Notification{}).Where("status = ?", constants.NotificationStatusPending).Count(&pending).Error; err != nil {
		t.Fatalf("count pending failed: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected no pending rows, got %d", pending)
	}
}

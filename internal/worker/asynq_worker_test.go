package worker

import (
	"context"
	"testing"

	"github.com/bazar-next/internal/provider"
	"github.com/bazar-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleRefundProcessNilTask(t *testing.T) {
	c := NewConsumer(&provider.Container{})
	if err := c.handleRefundProcess(context.Background(), nil); err != nil {
		t.Fatalf("nil task should be skipped, got %v", err)
	}
}

func TestHandleRefundProcessBadPayload(t *testing.T) {
	c := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskRefundProcess, []byte("{broken"))
	if err := c.handleRefundProcess(context.Background(), task); err == nil {
		t.Fatalf("broken payload should return error for retry visibility")
	}
}

func TestHandleRefundProcessZeroReturnID(t *testing.T) {
	c := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskRefundProcess, []byte(`{"return_id":0}`))
	if err := c.handleRefundProcess(context.Background(), task); err != nil {
		t.Fatalf("zero return id should be dropped, got %v", err)
	}
}

func TestHandleNotificationDispatchZeroID(t *testing.T) {
	c := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskNotificationDispatch, []byte(`{"notification_id":0}`))
	if err := c.handleNotificationDispatch(context.Background(), task); err != nil {
		t.Fatalf("zero notification id should be dropped, got %v", err)
	}
}

func TestNewServiceQueueDisabled(t *testing.T) {
	if _, err := NewService(nil, NewConsumer(&provider.Container{})); err == nil {
		t.Fatalf("nil config should fail")
	}
}

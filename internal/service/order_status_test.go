package service

import (
	"testing"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/models"
)

func sellerOrdersWithStatuses(statuses ...string) []models.SellerOrder {
	out := make([]models.SellerOrder, 0, len(statuses))
	for i, status := range statuses {
		out = append(out, models.SellerOrder{ID: uint(i + 1), Status: status})
	}
	return out
}

func TestRecomputeOrderStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"empty", nil, constants.OrderStatusPending},
		{"all_pending", []string{constants.OrderStatusPending, constants.OrderStatusPending}, constants.OrderStatusPending},
		{"all_completed", []string{constants.OrderStatusCompleted, constants.OrderStatusCompleted}, constants.OrderStatusCompleted},
		{"all_canceled", []string{constants.OrderStatusCanceled, constants.OrderStatusCanceled}, constants.OrderStatusCanceled},
		{"assembling_beats_shipped", []string{constants.OrderStatusAssembling, constants.OrderStatusShipped}, constants.OrderStatusAssembling},
		{"shipped_with_pending", []string{constants.OrderStatusShipped, constants.OrderStatusPending}, constants.OrderStatusShipped},
		{"pending_with_canceled", []string{constants.OrderStatusPending, constants.OrderStatusCanceled}, constants.OrderStatusPending},
		{"completed_with_canceled", []string{constants.OrderStatusCompleted, constants.OrderStatusCanceled}, constants.OrderStatusPending},
		{"completed_with_shipped", []string{constants.OrderStatusCompleted, constants.OrderStatusShipped}, constants.OrderStatusShipped},
		{"single_assembling", []string{constants.OrderStatusAssembling}, constants.OrderStatusAssembling},
	}
	for _, tc := range cases {
		got := RecomputeOrderStatus(sellerOrdersWithStatuses(tc.statuses...))
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
		// 幂等：同一输入再算一次结果不变
		if again := RecomputeOrderStatus(sellerOrdersWithStatuses(tc.statuses...)); again != got {
			t.Fatalf("%s: recompute not idempotent: %s vs %s", tc.name, got, again)
		}
	}
}

func TestSellerOrderTransitionTable(t *testing.T) {
	if !sellerOrderTransitions[constants.OrderStatusPending][constants.OrderStatusAssembling] {
		t.Fatalf("pending -> assembling should be allowed")
	}
	if sellerOrderTransitions[constants.OrderStatusPending][constants.OrderStatusShipped] {
		t.Fatalf("pending -> shipped must not skip assembling")
	}
	if sellerOrderTransitions[constants.OrderStatusShipped][constants.OrderStatusCanceled] {
		t.Fatalf("shipped orders cannot be canceled")
	}
	if sellerOrderTransitions[constants.OrderStatusCompleted] != nil {
		t.Fatalf("completed is terminal")
	}
	if sellerOrderTransitions[constants.OrderStatusCanceled] != nil {
		t.Fatalf("canceled is terminal")
	}
}

func TestValidOrderQR(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	order := &models.Order{QRToken: "tok123", QRExpiresAt: &future}
	if !validOrderQR(order, "tok123", now) {
		t.Fatalf("matching unexpired code should pass")
	}
	if validOrderQR(order, "other", now) {
		t.Fatalf("mismatched code should fail")
	}
	if validOrderQR(order, "", now) {
		t.Fatalf("empty code should fail")
	}
	order.QRExpiresAt = &past
	if validOrderQR(order, "tok123", now) {
		t.Fatalf("expired code should fail")
	}
	order.QRExpiresAt = nil
	if validOrderQR(order, "tok123", now) {
		t.Fatalf("code without expiry should fail")
	}
	if validOrderQR(&models.Order{}, "tok123", now) {
		t.Fatalf("order without token should fail")
	}
}

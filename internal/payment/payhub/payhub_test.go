package payhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:    baseURL,
		MerchantID: "1001",
		SecretKey:  "test-secret",
		Timeout:    2 * time.Second,
	})
}

func TestRefundSuccessAndSignature(t *testing.T) {
	var gotSign, gotRefundNo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form failed: %v", err)
		}
		gotSign = r.PostFormValue("sign")
		gotRefundNo = r.PostFormValue("refund_no")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":1,"msg":"ok","trade_no":"T123"}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	res, err := client.Refund(context.Background(), RefundInput{
		RefundNo: "RET_7",
		OrderNo:  "ORD_42",
		Amount:   "19.99",
		Currency: "USD",
		Reason:   "defective_damaged",
	})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if res.TradeNo != "T123" {
		t.Fatalf("expected trade_no T123, got %s", res.TradeNo)
	}
	if gotRefundNo != "RET_7" {
		t.Fatalf("expected refund_no RET_7, got %s", gotRefundNo)
	}

	want := signMD5(buildSignContent(map[string]string{
		"pid":          "1001",
		"refund_no":    "RET_7",
		"out_trade_no": "ORD_42",
		"money":        "19.99",
		"currency":     "USD",
		"reason":       "defective_damaged",
	}) + "test-secret")
	if gotSign != want {
		t.Fatalf("signature mismatch: got %s want %s", gotSign, want)
	}
}

func TestRefundRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"insufficient balance"}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.Refund(context.Background(), RefundInput{
		RefundNo: "RET_8", OrderNo: "ORD_1", Amount: "5.00",
	})
	if !errors.Is(err, ErrRefundRejected) {
		t.Fatalf("expected ErrRefundRejected, got %v", err)
	}
}

func TestRefundGatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.Refund(context.Background(), RefundInput{
		RefundNo: "RET_9", OrderNo: "ORD_2", Amount: "5.00",
	})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestRefundConfigInvalid(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Refund(context.Background(), RefundInput{
		RefundNo: "RET_10", OrderNo: "ORD_3", Amount: "5.00",
	})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

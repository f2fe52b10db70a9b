package service

import "errors"

// 订单相关错误
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderCreateFailed    = errors.New("order create failed")
	ErrCartMismatch         = errors.New("cart items mismatch")
	ErrCartEmpty            = errors.New("cart is empty")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrAddressNotFound      = errors.New("address not found")
	ErrProductUnavailable   = errors.New("product unavailable")
	ErrSellerOrderNotFound  = errors.New("seller order not found")
	ErrOrderStatusInvalid   = errors.New("order status transition not allowed")
	ErrOrderNotCancelable   = errors.New("order can not be canceled")
	ErrCourierNotFound      = errors.New("courier not found")
	ErrCourierNotAssigned   = errors.New("courier not assigned to this order")
	ErrQRTokenInvalid       = errors.New("invalid or expired QR token")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrPaymentMethodInvalid = errors.New("payment method invalid")
)

// 退货相关错误
var (
	ErrReturnNotFound        = errors.New("return not found")
	ErrReturnCreateFailed    = errors.New("return create failed")
	ErrReturnWindowClosed    = errors.New("return window closed")
	ErrReturnOrderIneligible = errors.New("order not eligible for return")
	ErrReturnItemInvalid     = errors.New("return item does not belong to order")
	ErrReturnItemTaken       = errors.New("item already covered by another return")
	ErrReturnStatusInvalid   = errors.New("return status transition not allowed")
	ErrReturnQRUnknown       = errors.New("unknown QR code")
	ErrReturnQRExpired       = errors.New("QR code expired")
	ErrReturnTerminal        = errors.New("return already in terminal status")
	ErrRefundFailed          = errors.New("refund processing failed")
)

package public

import (
	"errors"

	"github.com/bazar-next/internal/http/response"
	"github.com/bazar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, msg: "cart is empty"},
	{target: service.ErrCartMismatch, code: response.CodeBadRequest, msg: "cart items mismatch"},
	{target: service.ErrInsufficientStock, code: response.CodeBadRequest, msg: "insufficient stock"},
	{target: service.ErrAddressNotFound, code: response.CodeBadRequest, msg: "address not found"},
	{target: service.ErrProductUnavailable, code: response.CodeBadRequest, msg: "product unavailable"},
	{target: service.ErrPaymentMethodInvalid, code: response.CodeBadRequest, msg: "payment method invalid"},
}

var orderStatusErrorRules = []mappedHandlerError{
	{target: service.ErrSellerOrderNotFound, code: response.CodeNotFound, msg: "seller order not found"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrPermissionDenied, code: response.CodeForbidden, msg: "permission denied"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, msg: "status transition not allowed"},
	{target: service.ErrCourierNotAssigned, code: response.CodeBadRequest, msg: "courier not assigned"},
	{target: service.ErrQRTokenInvalid, code: response.CodeBadRequest, msg: "invalid or expired QR code"},
}

var courierAssignErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrPermissionDenied, code: response.CodeForbidden, msg: "permission denied"},
	{target: service.ErrCourierNotFound, code: response.CodeBadRequest, msg: "courier not found"},
}

var returnCreateErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrReturnWindowClosed, code: response.CodeBadRequest, msg: "return window closed"},
	{target: service.ErrReturnOrderIneligible, code: response.CodeBadRequest, msg: "order not eligible for return"},
	{target: service.ErrReturnItemInvalid, code: response.CodeBadRequest, msg: "return item invalid"},
	{target: service.ErrReturnItemTaken, code: response.CodeBadRequest, msg: "item already covered by another return"},
}

var returnActionErrorRules = []mappedHandlerError{
	{target: service.ErrReturnNotFound, code: response.CodeNotFound, msg: "return not found"},
	{target: service.ErrPermissionDenied, code: response.CodeForbidden, msg: "permission denied"},
	{target: service.ErrReturnTerminal, code: response.CodeBadRequest, msg: "return already closed"},
	{target: service.ErrReturnStatusInvalid, code: response.CodeBadRequest, msg: "return status transition not allowed"},
}

var returnScanErrorRules = []mappedHandlerError{
	{target: service.ErrReturnQRUnknown, code: response.CodeNotFound, msg: "unknown QR code"},
	{target: service.ErrReturnQRExpired, code: response.CodeBadRequest, msg: "QR code expired"},
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "order create failed")
}

func respondOrderStatusError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderStatusErrorRules, response.CodeInternal, "order update failed")
}

func respondCourierAssignError(c *gin.Context, err error) {
	respondWithMappedError(c, err, courierAssignErrorRules, response.CodeInternal, "order update failed")
}

func respondReturnCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, returnCreateErrorRules, response.CodeInternal, "return create failed")
}

func respondReturnActionError(c *gin.Context, err error) {
	respondWithMappedError(c, err, returnActionErrorRules, response.CodeInternal, "return update failed")
}

func respondReturnScanError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(returnScanErrorRules, returnActionErrorRules), response.CodeInternal, "return update failed")
}

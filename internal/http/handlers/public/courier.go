package public

import (
	"strconv"
	"strings"

	"github.com/bazar-next/internal/http/response"
	"github.com/bazar-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// CourierOrderStatusRequest 快递员更新子订单状态请求
type CourierOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	QRCode string `json:"qr_code"`
}

// ListCourierOrders 快递员名下订单列表
func (h *Handler) ListCourierOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))

	orders, total, err := h.OrderService.ListOrdersByCourier(repository.OrderListFilter{
		Page:      page,
		PageSize:  pageSize,
		CourierID: uid,
		Status:    status,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, orders, pagination)
}

// UpdateCourierOrderStatus 快递员推进子订单状态
func (h *Handler) UpdateCourierOrderStatus(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	sellerOrderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sellerOrderID == 0 {
		respondError(c, response.CodeBadRequest, "order id invalid", nil)
		return
	}

	var req CourierOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.OrderService.UpdateSellerOrderStatus(actor, uint(sellerOrderID), req.Status, req.QRCode); err != nil {
		respondOrderStatusError(c, err)
		return
	}

	response.Success(c, gin.H{"updated": true})
}

package public

import (
	"strconv"
	"strings"

	"github.com/bazar-next/internal/http/response"
	"github.com/bazar-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// SellerOrderStatusRequest 卖家更新子订单状态请求
type SellerOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	QRCode string `json:"qr_code"`
}

// AssignCourierRequest 指派快递员请求
type AssignCourierRequest struct {
	CourierID uint `json:"courier_id" binding:"required"`
}

// ReturnConditionRequest 验货结论请求
type ReturnConditionRequest struct {
	ConditionOK bool     `json:"condition_ok"`
	Reason      string   `json:"reason"`
	Photos      []string `json:"photos"`
}

// ReturnRejectRequest 拒绝退货请求
type ReturnRejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReturnStatusRequest 显式更新退货状态请求
type ReturnStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListSellerOrders 卖家子订单列表
func (h *Handler) ListSellerOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))

	orders, total, err := h.OrderService.ListSellerOrders(repository.SellerOrderListFilter{
		Page:     page,
		PageSize: pageSize,
		SellerID: uid,
		Status:   status,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, orders, pagination)
}

// UpdateSellerOrderStatus 卖家推进子订单状态
func (h *Handler) UpdateSellerOrderStatus(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	sellerOrderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sellerOrderID == 0 {
		respondError(c, response.CodeBadRequest, "order id invalid", nil)
		return
	}

	var req SellerOrderStatusRequest
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

// AssignCourier 卖家指派快递员
func (h *Handler) AssignCourier(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "order id invalid", nil)
		return
	}

	var req AssignCourierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.OrderService.AssignCourier(uid, uint(orderID), req.CourierID); err != nil {
		respondCourierAssignError(c, err)
		return
	}

	response.Success(c, gin.H{"assigned": true})
}

// ListSellerReturns 卖家退货申请列表
func (h *Handler) ListSellerReturns(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))

	returns, total, err := h.ReturnsService.ListReturns(repository.ReturnListFilter{
		Page:     page,
		PageSize: pageSize,
		SellerID: uid,
		Status:   status,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "return fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, returns, pagination)
}

// ApproveReturn 卖家同意退货
func (h *Handler) ApproveReturn(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	returnID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || returnID == 0 {
		respondError(c, response.CodeBadRequest, "return id invalid", nil)
		return
	}

	if err := h.ReturnsService.ApproveReturn(uid, uint(returnID)); err != nil {
		respondReturnActionError(c, err)
		return
	}

	response.Success(c, gin.H{"approved": true})
}

// RejectReturn 卖家拒绝退货
func (h *Handler) RejectReturn(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	returnID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || returnID == 0 {
		respondError(c, response.CodeBadRequest, "return id invalid", nil)
		return
	}

	var req ReturnRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.ReturnsService.RejectReturn(uid, uint(returnID), req.Reason); err != nil {
		respondReturnActionError(c, err)
		return
	}

	response.Success(c, gin.H{"rejected": true})
}

// MarkReturnCondition 卖家提交验货结论
func (h *Handler) MarkReturnCondition(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	returnID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || returnID == 0 {
		respondError(c, response.CodeBadRequest, "return id invalid", nil)
		return
	}

	var req ReturnConditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if req.ConditionOK {
		err = h.ReturnsService.MarkConditionOK(uid, uint(returnID))
	} else {
		if strings.TrimSpace(req.Reason) == "" {
			respondError(c, response.CodeBadRequest, "reason required", nil)
			return
		}
		err = h.ReturnsService.MarkConditionBad(uid, uint(returnID), req.Reason, req.Photos)
	}
	if err != nil {
		respondReturnActionError(c, err)
		return
	}

	response.Success(c, gin.H{"updated": true})
}

// UpdateReturnStatus 卖家显式更新退货状态
func (h *Handler) UpdateReturnStatus(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	returnID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || returnID == 0 {
		respondError(c, response.CodeBadRequest, "return id invalid", nil)
		return
	}

	var req ReturnStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.ReturnsService.UpdateReturnStatusByName(uid, uint(returnID), req.Status); err != nil {
		respondReturnActionError(c, err)
		return
	}

	response.Success(c, gin.H{"updated": true})
}

package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bazar-next/internal/http/response"
	"github.com/bazar-next/internal/repository"
	"github.com/bazar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ReturnItemRequest 退货明细请求
type ReturnItemRequest struct {
	OrderItemID uint   `json:"order_item_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
	Comment     string `json:"comment"`
}

// CreateReturnRequest 创建退货申请请求
type CreateReturnRequest struct {
	OrderID      uint                `json:"order_id" binding:"required"`
	ReturnMethod string              `json:"return_method" binding:"required"`
	Items        []ReturnItemRequest `json:"items" binding:"required"`
}

// ScanReturnRequest 扫描退货二维码请求
type ScanReturnRequest struct {
	Code string `json:"code" binding:"required"`
}

// CreateReturn 创建退货申请
func (h *Handler) CreateReturn(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	items := make([]service.CreateReturnItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CreateReturnItem{
			OrderItemID: item.OrderItemID,
			Quantity:    item.Quantity,
			Reason:      item.Reason,
			Comment:     item.Comment,
		})
	}

	ret, err := h.ReturnsService.CreateReturn(service.CreateReturnInput{
		UserID:       uid,
		OrderID:      req.OrderID,
		ReturnMethod: req.ReturnMethod,
		Items:        items,
	})
	if err != nil {
		respondReturnCreateError(c, err)
		return
	}

	response.Success(c, ret)
}

// ListReturns 获取用户退货申请列表
func (h *Handler) ListReturns(c *gin.Context) {
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
		UserID:   uid,
		Status:   status,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "return fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, returns, pagination)
}

// GetReturn 获取退货申请详情
func (h *Handler) GetReturn(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	returnID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || returnID == 0 {
		respondError(c, response.CodeBadRequest, "return id invalid", nil)
		return
	}

	ret, err := h.ReturnsService.GetReturn(actor, uint(returnID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReturnNotFound):
			respondError(c, response.CodeNotFound, "return not found", nil)
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, response.CodeForbidden, "permission denied", nil)
		default:
			respondError(c, response.CodeInternal, "return fetch failed", err)
		}
		return
	}

	response.Success(c, ret)
}

// ScanReturnQR 扫描退货二维码推进状态
func (h *Handler) ScanReturnQR(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req ScanReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	ret, err := h.ReturnsService.ScanReturnQR(actor, req.Code)
	if err != nil {
		respondReturnScanError(c, err)
		return
	}

	response.Success(c, ret)
}

package repository

import (
	"errors"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// activeReturnStatuses 占用订单项的退货状态
// rejected 与 condition_bad 释放订单项，其余状态（含仓库弃置）持续占用。
var activeReturnStatuses = []string{
	constants.ReturnStatusPending,
	constants.ReturnStatusApproved,
	constants.ReturnStatusInTransit,
	constants.ReturnStatusReceived,
	constants.ReturnStatusConditionOK,
	constants.ReturnStatusInTransitBack,
	constants.ReturnStatusRejectedByWarehouse,
	constants.ReturnStatusRefundInitiated,
	constants.ReturnStatusCompleted,
}

// ReturnRepository 退货数据访问接口
type ReturnRepository interface {
	Create(ret *models.OrderReturn, items []models.ReturnItem) error
	GetByID(id uint) (*models.OrderReturn, error)
	GetByIDForUpdate(id uint) (*models.OrderReturn, error)
	FindTokenByCode(code string) (*models.ReturnToken, error)
	CreateToken(token *models.ReturnToken) error
	ListActiveItemIDsByOrder(orderID uint) ([]uint, error)
	ListExpiredForDisposal(now time.Time) ([]models.OrderReturn, error)
	ListStaleRefundInitiated(cutoff time.Time, limit int) ([]models.OrderReturn, error)
	List(filter ReturnListFilter) ([]models.OrderReturn, int64, error)
	Update(id uint, updates map[string]interface{}) error
	UpdateItem(id uint, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) *GormReturnRepository
}

// GormReturnRepository GORM 实现
type GormReturnRepository struct {
	db *gorm.DB
}

// NewReturnRepository 创建退货仓库
func NewReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReturnRepository) WithTx(tx *gorm.DB) *GormReturnRepository {
	if tx == nil {
		return r
	}
	return &GormReturnRepository{db: tx}
}

func (r *GormReturnRepository) withDetails(query *gorm.DB) *gorm.DB {
	return query.Preload("Items").Preload("Tokens", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).Preload("Order")
}

// Create 创建退货申请与明细
func (r *GormReturnRepository) Create(ret *models.OrderReturn, items []models.ReturnItem) error {
	if err := r.db.Create(ret).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].ReturnID = ret.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 获取退货申请详情
func (r *GormReturnRepository) GetByID(id uint) (*models.OrderReturn, error) {
	var ret models.OrderReturn
	if err := r.withDetails(r.db).First(&ret, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ret, nil
}

// GetByIDForUpdate 加行锁获取退货申请（退款任务幂等保护）
func (r *GormReturnRepository) GetByIDForUpdate(id uint) (*models.OrderReturn, error) {
	var ret models.OrderReturn
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ret, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ret, nil
}

// FindTokenByCode 根据二维码内容查找令牌
func (r *GormReturnRepository) FindTokenByCode(code string) (*models.ReturnToken, error) {
	if code == "" {
		return nil, nil
	}
	var token models.ReturnToken
	if err := r.db.Where("code = ?", code).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// CreateToken 签发新令牌（追加，不覆盖历史令牌）
func (r *GormReturnRepository) CreateToken(token *models.ReturnToken) error {
	return r.db.Create(token).Error
}

// ListActiveItemIDsByOrder 列出订单中已被进行中退货占用的订单项 ID
func (r *GormReturnRepository) ListActiveItemIDsByOrder(orderID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ReturnItem{}).
		Joins("JOIN order_returns ON order_returns.id = return_items.return_id").
		Where("order_returns.order_id = ? AND order_returns.status IN ? AND order_returns.deleted_at IS NULL",
			orderID, activeReturnStatuses).
		Pluck("return_items.order_item_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListExpiredForDisposal 列出弃置截止时间已过、仍停留在验货不合格的退货
func (r *GormReturnRepository) ListExpiredForDisposal(now time.Time) ([]models.OrderReturn, error) {
	var rets []models.OrderReturn
	err := r.db.Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?",
		constants.ReturnStatusConditionBad, now).
		Order("id asc").
		Find(&rets).Error
	if err != nil {
		return nil, err
	}
	return rets, nil
}

// ListStaleRefundInitiated 查询停留在退款发起状态过久的退货
// 用于补偿退款任务入队失败的行。
func (r *GormReturnRepository) ListStaleRefundInitiated(cutoff time.Time, limit int) ([]models.OrderReturn, error) {
	var rets []models.OrderReturn
	query := r.db.Where("status = ? AND updated_at < ?",
		constants.ReturnStatusRefundInitiated, cutoff).
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rets).Error; err != nil {
		return nil, err
	}
	return rets, nil
}

// List 分页查询退货申请
func (r *GormReturnRepository) List(filter ReturnListFilter) ([]models.OrderReturn, int64, error) {
	query := r.db.Model(&models.OrderReturn{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.SellerID > 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rets []models.OrderReturn
	listQuery := r.withDetails(applyPagination(query.Order("created_at desc"), filter.Page, filter.PageSize))
	if err := listQuery.Find(&rets).Error; err != nil {
		return nil, 0, err
	}
	return rets, total, nil
}

// Update 更新退货申请字段
func (r *GormReturnRepository) Update(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.OrderReturn{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateItem 更新退货明细字段（验货不合格时追加照片）
func (r *GormReturnRepository) UpdateItem(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.ReturnItem{}).Where("id = ?", id).Updates(updates).Error
}

package repository

import (
	"time"

	"github.com/bazar-next/internal/models"

	"gorm.io/gorm"
)

// PromotionRepository 活动价数据访问接口
type PromotionRepository interface {
	ListActiveByProductIDs(ids []uint, now time.Time) ([]models.Promotion, error)
	WithTx(tx *gorm.DB) *GormPromotionRepository
}

// GormPromotionRepository GORM 实现
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository 创建活动价仓库
func NewPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromotionRepository) WithTx(tx *gorm.DB) *GormPromotionRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionRepository{db: tx}
}

// ListActiveByProductIDs 查询商品当前生效的活动价
func (r *GormPromotionRepository) ListActiveByProductIDs(ids []uint, now time.Time) ([]models.Promotion, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var promotions []models.Promotion
	err := r.db.Where("product_id IN ? AND is_active = ?", ids, true).
		Where("starts_at IS NULL OR starts_at <= ?", now).
		Where("ends_at IS NULL OR ends_at >= ?", now).
		Order("id asc").
		Find(&promotions).Error
	if err != nil {
		return nil, err
	}
	return promotions, nil
}

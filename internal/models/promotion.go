package models

import (
	"time"

	"gorm.io/gorm"
)

// Promotion 活动价/折扣规则
type Promotion struct {
	ID        uint           `gorm:"primarykey" json:"id"`                     // 主键
	Name      string         `gorm:"not null" json:"name"`                     // 名称
	ProductID uint           `gorm:"index;not null" json:"product_id"`         // 关联商品ID
	Type      string         `gorm:"not null" json:"type"`                     // 类型（fixed/percent）
	Value     Money          `gorm:"type:decimal(20,2);not null" json:"value"` // 数值（固定优惠额/百分比）
	StartsAt  *time.Time     `gorm:"index" json:"starts_at"`                   // 生效时间
	EndsAt    *time.Time     `gorm:"index" json:"ends_at"`                     // 失效时间
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`   // 是否启用
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                  // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                  // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                           // 软删除时间
}

// TableName 指定表名
func (Promotion) TableName() string {
	return "promotions"
}

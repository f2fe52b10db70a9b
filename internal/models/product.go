package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（归属卖家）
type Product struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                      // 主键
	UserID          uint           `gorm:"index;not null" json:"user_id"`                             // 卖家ID
	Title           string         `gorm:"not null" json:"title"`                                     // 商品标题
	Description     string         `gorm:"type:text" json:"description"`                              // 商品描述
	PriceAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"` // 现价
	OldPriceAmount  Money          `gorm:"type:decimal(20,2);default:0" json:"old_price_amount"`      // 划线价（历史字段）
	DiscountPercent int            `gorm:"default:0" json:"discount_percent"`                         // 折扣百分比（历史字段）
	Quantity        int            `gorm:"not null;default:0" json:"quantity"`                        // 剩余库存
	Images          StringArray    `gorm:"type:json" json:"images"`                                   // 图片数组
	IsActive        bool           `gorm:"default:true;index" json:"is_active"`                       // 是否上架
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	// 关联
	Seller *User `gorm:"foreignKey:UserID" json:"seller,omitempty"` // 卖家信息
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

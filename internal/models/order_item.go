package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表（下单时价格快照，写入后不可变）
type OrderItem struct {
	ID            uint           `gorm:"primarykey" json:"id"`                               // 主键
	OrderID       uint           `gorm:"index;not null" json:"order_id"`                     // 父订单ID
	SellerOrderID uint           `gorm:"index;not null" json:"seller_order_id"`              // 卖家子订单ID
	ProductID     uint           `gorm:"index;not null" json:"product_id"`                   // 商品ID
	Title         string         `gorm:"not null" json:"title"`                              // 商品标题快照
	Price         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 成交单价快照
	Quantity      int            `gorm:"not null" json:"quantity"`                           // 数量
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 父订单表（客户视角的一次下单）
// Status 只由聚合函数或终态动作写入，不接受外部直接修改。
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                       // 主键
	UUID          string         `gorm:"uniqueIndex;not null" json:"uuid"`                           // 订单编号
	UserID        uint           `gorm:"index;not null" json:"user_id"`                              // 客户ID
	UserAddressID uint           `gorm:"index;not null" json:"user_address_id"`                      // 收货地址ID
	CourierID     *uint          `gorm:"index" json:"courier_id,omitempty"`                          // 配送员ID
	Status        string         `gorm:"index;not null" json:"status"`                               // 订单状态（由子订单聚合推导）
	TotalAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`  // 商品总额 + 配送费
	DeliveryCost  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"delivery_cost"` // 配送费
	Currency      string         `gorm:"not null" json:"currency"`                                   // 币种
	PaymentMethod string         `gorm:"not null" json:"payment_method"`                             // 支付方式（card/cash）
	PaidAt        *time.Time     `gorm:"index" json:"paid_at"`                                       // 支付时间
	QRToken       string         `gorm:"index" json:"-"`                                             // 交接二维码令牌
	QRExpiresAt   *time.Time     `json:"-"`                                                          // 交接二维码过期时间
	CanceledAt    *time.Time     `gorm:"index" json:"canceled_at"`                                   // 取消时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                                    // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间

	// 关联
	Items        []OrderItem   `gorm:"foreignKey:OrderID" json:"items,omitempty"`         // 订单项（全部卖家）
	SellerOrders []SellerOrder `gorm:"foreignKey:OrderID" json:"seller_orders,omitempty"` // 卖家子订单
	Address      *Address      `gorm:"foreignKey:UserAddressID" json:"address,omitempty"` // 收货地址
	Courier      *User         `gorm:"foreignKey:CourierID" json:"courier,omitempty"`     // 配送员
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// SellerOrder 卖家子订单表（按卖家拆分的履约单元）
type SellerOrder struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderID     uint           `gorm:"index;not null" json:"order_id"`                            // 父订单ID
	SellerID    uint           `gorm:"index;not null" json:"seller_id"`                           // 卖家ID
	Status      string         `gorm:"index;not null" json:"status"`                              // 子订单状态
	TotalAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 该卖家商品小计
	ConfirmedAt *time.Time     `json:"confirmed_at"`                                              // 卖家确认时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	// 关联
	Items  []OrderItem `gorm:"foreignKey:SellerOrderID" json:"items,omitempty"` // 该卖家的订单项
	Order  *Order      `gorm:"foreignKey:OrderID" json:"order,omitempty"`       // 父订单
	Seller *User       `gorm:"foreignKey:SellerID" json:"seller,omitempty"`     // 卖家信息
}

// TableName 指定表名
func (SellerOrder) TableName() string {
	return "seller_orders"
}

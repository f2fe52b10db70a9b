package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderReturn 退货申请表（只追加，状态机推进，不删除）
type OrderReturn struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                        // 主键
	OrderID         uint           `gorm:"index;not null" json:"order_id"`                              // 父订单ID
	UserID          uint           `gorm:"index;not null" json:"user_id"`                               // 客户ID
	SellerID        uint           `gorm:"index;not null" json:"seller_id"`                             // 卖家ID
	Status          string         `gorm:"index;not null" json:"status"`                                // 退货状态
	RefundAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"refund_amount"`  // 应退金额（快照价 × 数量求和）
	LogisticsCost   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"logistics_cost"` // 退货物流费
	ReturnMethod    string         `gorm:"not null" json:"return_method"`                               // 退货方式（self_return/courier_return）
	RejectionReason string         `gorm:"type:text" json:"rejection_reason,omitempty"`                 // 拒绝/验货不合格原因
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at"`                                     // 弃置截止时间（condition_bad 时设定）
	CompletedAt     *time.Time     `json:"completed_at"`                                                // 完成时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                     // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间

	// 关联
	Items  []ReturnItem  `gorm:"foreignKey:ReturnID" json:"items,omitempty"`  // 退货明细
	Tokens []ReturnToken `gorm:"foreignKey:ReturnID" json:"tokens,omitempty"` // 二维码令牌（按签发顺序）
	Order  *Order        `gorm:"foreignKey:OrderID" json:"order,omitempty"`   // 父订单
}

// TableName 指定表名
func (OrderReturn) TableName() string {
	return "order_returns"
}

// ReturnToken 退货二维码令牌表
// 每次签发追加一行，kind 区分寄出码与退回客户码。
type ReturnToken struct {
	ID        uint       `gorm:"primarykey" json:"id"`             // 主键
	ReturnID  uint       `gorm:"index;not null" json:"return_id"`  // 退货申请ID
	Kind      string     `gorm:"index;not null" json:"kind"`       // 令牌类型（outbound/back_to_customer）
	Code      string     `gorm:"uniqueIndex;not null" json:"code"` // 令牌内容（RETURN_ 前缀）
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`          // 过期时间
	CreatedAt time.Time  `gorm:"index" json:"created_at"`          // 签发时间
}

// TableName 指定表名
func (ReturnToken) TableName() string {
	return "return_tokens"
}

// ReturnItem 退货明细表
type ReturnItem struct {
	ID          uint           `gorm:"primarykey" json:"id"`                               // 主键
	ReturnID    uint           `gorm:"index;not null" json:"return_id"`                    // 退货申请ID
	OrderItemID uint           `gorm:"index;not null" json:"order_item_id"`                // 订单项ID
	ProductID   uint           `gorm:"index;not null" json:"product_id"`                   // 商品ID
	Quantity    int            `gorm:"not null" json:"quantity"`                           // 退货数量
	Price       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 下单时单价快照
	Reason      string         `gorm:"not null" json:"reason"`                             // 退货原因
	Comment     string         `gorm:"type:text" json:"comment,omitempty"`                 // 客户备注
	Photos      StringArray    `gorm:"type:json" json:"photos"`                            // 照片（验货不合格时卖家可追加）
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (ReturnItem) TableName() string {
	return "return_items"
}

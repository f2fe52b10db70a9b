package models

import (
	"time"
)

// Notification 通知发件箱表
// 业务事务内只写入 pending 行，提交后由队列任务投递并回写状态。
type Notification struct {
	ID        uint       `gorm:"primarykey" json:"id"`                           // 主键
	UserID    uint       `gorm:"index;not null" json:"user_id"`                  // 接收用户ID
	EventType string     `gorm:"index;not null" json:"event_type"`               // 事件类型（order.created 等）
	Payload   JSON       `gorm:"type:json" json:"payload"`                       // 事件负载
	Status    string     `gorm:"index;not null;default:'pending'" json:"status"` // 投递状态（pending/sent/failed）
	LastError string     `gorm:"type:text" json:"-"`                             // 最近一次投递失败原因
	SentAt    *time.Time `json:"sent_at"`                                        // 投递时间
	CreatedAt time.Time  `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt time.Time  `gorm:"index" json:"updated_at"`                        // 更新时间
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

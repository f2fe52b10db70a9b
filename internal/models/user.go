package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（customer/seller/courier 共用一张表，按角色区分）
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                          // 主键
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`             // 邮箱
	PasswordHash string         `gorm:"not null" json:"-"`                             // 密码哈希（不返回给前端）
	Name         string         `gorm:"default:''" json:"name"`                        // 姓名
	Role         string         `gorm:"index;not null;default:'customer'" json:"role"` // 角色（customer/seller/courier）
	IsActive     bool           `gorm:"not null;default:true;index" json:"is_active"`  // 账号状态
	LastLoginAt  *time.Time     `json:"last_login_at"`                                 // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                       // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间

	Addresses []Address `gorm:"foreignKey:UserID" json:"addresses,omitempty"` // 收货地址
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Address 收货地址表
type Address struct {
	ID        uint           `gorm:"primarykey" json:"id"`            // 主键
	UserID    uint           `gorm:"index;not null" json:"user_id"`   // 用户ID
	Line      string         `gorm:"not null" json:"line"`            // 街道地址
	City      string         `gorm:"not null;index" json:"city"`      // 城市
	IsDefault bool           `gorm:"default:false" json:"is_default"` // 是否默认地址
	CreatedAt time.Time      `gorm:"index" json:"created_at"`         // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                      // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                  // 软删除时间
}

// TableName 指定表名
func (Address) TableName() string {
	return "addresses"
}

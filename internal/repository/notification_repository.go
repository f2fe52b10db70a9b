package repository

import (
	"errors"
	"time"

	"github.com/bazar-next/internal/constants"
	"github.com/bazar-next/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository 通知发件箱数据访问接口
type NotificationRepository interface {
	Create(n *models.Notification) error
	GetByID(id uint) (*models.Notification, error)
	ListPending(limit int) ([]models.Notification, error)
	ListByUser(userID uint, page, pageSize int) ([]models.Notification, int64, error)
	MarkSent(id uint, at time.Time) error
	MarkFailed(id uint, reason string) error
	WithTx(tx *gorm.DB) *GormNotificationRepository
}

// GormNotificationRepository GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓库
func NewNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormNotificationRepository) WithTx(tx *gorm.DB) *GormNotificationRepository {
	if tx == nil {
		return r
	}
	return &GormNotificationRepository{db: tx}
}

// Create 写入发件箱行（业务事务内调用）
func (r *GormNotificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

// GetByID 获取通知
func (r *GormNotificationRepository) GetByID(id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// ListPending 获取待投递通知（兜底扫描用）
func (r *GormNotificationRepository) ListPending(limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []models.Notification
	err := r.db.Where("status = ?", constants.NotificationStatusPending).
		Order("id asc").Limit(limit).Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListByUser 分页查询用户通知
func (r *GormNotificationRepository) ListByUser(userID uint, page, pageSize int) ([]models.Notification, int64, error) {
	query := r.db.Model(&models.Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.Notification
	if err := applyPagination(query.Order("created_at desc"), page, pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// MarkSent 标记已投递
func (r *GormNotificationRepository) MarkSent(id uint, at time.Time) error {
	return r.db.Model(&models.Notification{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":  constants.NotificationStatusSent,
		"sent_at": at,
	}).Error
}

// MarkFailed 标记投递失败
func (r *GormNotificationRepository) MarkFailed(id uint, reason string) error {
	return r.db.Model(&models.Notification{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     constants.NotificationStatusFailed,
		"last_error": reason,
	}).Error
}

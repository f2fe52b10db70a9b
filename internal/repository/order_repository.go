package repository

import (
	"errors"

	"github.com/bazar-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	CreateSellerOrder(so *models.SellerOrder, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDAndUser(id uint, userID uint) (*models.Order, error)
	GetByUUID(uuid string) (*models.Order, error)
	GetSellerOrderByID(id uint) (*models.SellerOrder, error)
	ListSellerOrdersByOrderID(orderID uint) ([]models.SellerOrder, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	ListByCourier(filter OrderListFilter) ([]models.Order, int64, error)
	ListBySeller(filter SellerOrderListFilter) ([]models.SellerOrder, int64, error)
	Update(id uint, updates map[string]interface{}) error
	UpdateSellerOrder(id uint, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withDetails(query *gorm.DB) *gorm.DB {
	return query.Preload("Items").Preload("SellerOrders").Preload("SellerOrders.Items").Preload("Address")
}

// Create 创建父订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// CreateSellerOrder 创建卖家子订单与其订单项
func (r *GormOrderRepository) CreateSellerOrder(so *models.SellerOrder, items []models.OrderItem) error {
	if err := r.db.Create(so).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].SellerOrderID = so.ID
		items[i].OrderID = so.OrderID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(r.db).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDAndUser 获取用户订单详情
func (r *GormOrderRepository) GetByIDAndUser(id uint, userID uint) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(r.db).Where("user_id = ?", userID).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByUUID 根据订单编号获取订单
func (r *GormOrderRepository) GetByUUID(uuid string) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(r.db).Where("uuid = ?", uuid).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetSellerOrderByID 获取卖家子订单（含父订单）
func (r *GormOrderRepository) GetSellerOrderByID(id uint) (*models.SellerOrder, error) {
	var so models.SellerOrder
	if err := r.db.Preload("Items").Preload("Order").First(&so, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &so, nil
}

// ListSellerOrdersByOrderID 获取父订单下全部子订单
func (r *GormOrderRepository) ListSellerOrdersByOrderID(orderID uint) ([]models.SellerOrder, error) {
	var sos []models.SellerOrder
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&sos).Error; err != nil {
		return nil, err
	}
	return sos, nil
}

// ListByUser 分页查询用户订单
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Where("user_id = ?", filter.UserID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UUID != "" {
		query = query.Where("uuid = ?", filter.UUID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	listQuery := r.withDetails(applyPagination(query.Order("created_at desc"), filter.Page, filter.PageSize))
	if err := listQuery.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListByCourier 分页查询分配给快递员的订单
func (r *GormOrderRepository) ListByCourier(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Where("courier_id = ?", filter.CourierID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	listQuery := r.withDetails(applyPagination(query.Order("created_at desc"), filter.Page, filter.PageSize))
	if err := listQuery.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListBySeller 分页查询卖家子订单
func (r *GormOrderRepository) ListBySeller(filter SellerOrderListFilter) ([]models.SellerOrder, int64, error) {
	query := r.db.Model(&models.SellerOrder{}).Where("seller_id = ?", filter.SellerID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sos []models.SellerOrder
	listQuery := applyPagination(query.Order("created_at desc"), filter.Page, filter.PageSize).
		Preload("Items").Preload("Order")
	if err := listQuery.Find(&sos).Error; err != nil {
		return nil, 0, err
	}
	return sos, total, nil
}

// Update 更新父订单字段
func (r *GormOrderRepository) Update(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateSellerOrder 更新卖家子订单字段
func (r *GormOrderRepository) UpdateSellerOrder(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.SellerOrder{}).Where("id = ?", id).Updates(updates).Error
}

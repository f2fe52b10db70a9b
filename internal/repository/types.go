package repository

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page      int
	PageSize  int
	UserID    uint
	CourierID uint
	Status    string
	UUID      string
}

// SellerOrderListFilter 查询卖家子订单列表的过滤条件
type SellerOrderListFilter struct {
	Page     int
	PageSize int
	SellerID uint
	Status   string
}

// ReturnListFilter 查询退货申请列表的过滤条件
type ReturnListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	SellerID uint
	Status   string
}

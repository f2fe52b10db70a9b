package constants

// 用户角色常量
const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleCourier  = "courier"
)

// 订单状态常量（父订单状态由子订单聚合得出）
const (
	OrderStatusPending    = "pending"
	OrderStatusAssembling = "assembling"
	OrderStatusShipped    = "shipped"
	OrderStatusCompleted  = "completed"
	OrderStatusCanceled   = "canceled"
)

// 支付方式常量
const (
	PaymentMethodCard = "card"
	PaymentMethodCash = "cash"
)

// 退货状态常量
const (
	ReturnStatusPending             = "pending"
	ReturnStatusApproved            = "approved"
	ReturnStatusRejected            = "rejected"
	ReturnStatusInTransit           = "in_transit"
	ReturnStatusReceived            = "received"
	ReturnStatusConditionOK         = "condition_ok"
	ReturnStatusConditionBad        = "condition_bad"
	ReturnStatusInTransitBack       = "in_transit_back_to_customer"
	ReturnStatusRejectedByWarehouse = "rejected_by_warehouse"
	ReturnStatusRefundInitiated     = "refund_initiated"
	ReturnStatusCompleted           = "completed"
)

// 活动价类型常量
const (
	PromotionTypePercent = "percent"
	PromotionTypeFixed   = "fixed"
)

// 退货方式常量
const (
	ReturnMethodSelf    = "self_return"
	ReturnMethodCourier = "courier_return"
)

// 退货原因常量
const (
	ReturnReasonNotAsDescribed = "does_not_match_description"
	ReturnReasonDefective      = "defective_damaged"
	ReturnReasonChangedMind    = "changed_mind"
	ReturnReasonWrongSize      = "wrong_size_fit"
	ReturnReasonArrivedTooLate = "arrived_too_late"
	ReturnReasonOther          = "other"
)

// 退货交接二维码类型常量
const (
	ReturnTokenKindOutbound       = "outbound"
	ReturnTokenKindBackToCustomer = "back_to_customer"
)

// 通知事件常量
const (
	NotificationEventOrderCreated       = "order.created"
	NotificationEventOrderStatusUpdated = "order.status_updated"
	NotificationEventReturnRequested    = "return.requested"
	NotificationEventReturnApproved     = "return.approved"
	NotificationEventReturnRejected     = "return.rejected"
	NotificationEventReturnInTransit    = "return.in_transit"
	NotificationEventReturnReceived     = "return.received"
	NotificationEventReturnConditionOK  = "return.condition_ok"
	NotificationEventReturnConditionBad = "return.condition_bad"
	NotificationEventReturnSentBack     = "return.sent_back_to_customer"
	NotificationEventReturnDisposed     = "return.disposed"
	NotificationEventRefundInitiated    = "return.refund_initiated"
	NotificationEventRefundCompleted    = "return.refund_completed"
)

// 通知投递状态常量
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// 队列名称常量
const (
	QueueHigh          = "high"
	QueueDefault       = "default"
	QueueLow           = "low"
	QueueAnalytics     = "analytics"
	QueueNotifications = "notifications"
)

// 异步任务类型常量
const (
	TaskRefundProcess        = "refund:process"
	TaskNotificationDispatch = "notification:dispatch"
)

// 站点默认币种
const SiteCurrencyDefault = "USD"

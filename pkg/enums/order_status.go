package enums

// OrderStatus tracks the lifecycle of a store order.
type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "order_created"
	OrderStatusPaymentReceived OrderStatus = "payment_received"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusFailed          OrderStatus = "failed"
)

var orderStatuses = set[OrderStatus]{
	OrderStatusCreated,
	OrderStatusPaymentReceived,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCanceled,
	OrderStatusFailed,
}

// TerminalFailureOrderStatuses no longer block a repeat checkout of the same cart.
var TerminalFailureOrderStatuses = []OrderStatus{OrderStatusCanceled, OrderStatusFailed}

func (o OrderStatus) String() string { return string(o) }

func (o OrderStatus) IsValid() bool { return orderStatuses.has(o) }

func (o OrderStatus) IsTerminalFailure() bool {
	return set[OrderStatus](TerminalFailureOrderStatuses).has(o)
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return orderStatuses.parse("order status", value)
}

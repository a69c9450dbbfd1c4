package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent tells the store that a customer placed an order with it.
// Money fields are two-decimal strings.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID `json:"orderId"`
	CustomerID      uuid.UUID `json:"customerId"`
	StoreID         uuid.UUID `json:"storeId"`
	Total           string    `json:"total"`
	Currency        string    `json:"currency"`
	ItemCount       int       `json:"itemCount"`
	PaymentIntentID string    `json:"paymentIntentId"`
	RecipientName   string    `json:"recipientName"`
	CreatedAt       time.Time `json:"createdAt"`
}

// OrderingKey keeps one store's orders in commit order.
func (e *OrderCreatedEvent) OrderingKey() string {
	if e.StoreID == uuid.Nil {
		return ""
	}
	return e.StoreID.String()
}

// RoutingAttributes lets store subscriptions filter on store_id.
func (e *OrderCreatedEvent) RoutingAttributes() map[string]string {
	if e.StoreID == uuid.Nil {
		return nil
	}
	return map[string]string{"store_id": e.StoreID.String()}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

// Order is one store's share of a customer checkout.
type Order struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID          uuid.UUID              `gorm:"column:customer_id;type:uuid;not null;index"`
	StoreID             uuid.UUID              `gorm:"column:store_id;type:uuid;not null;index"`
	Status              enums.OrderStatus      `gorm:"column:status;type:text;not null"`
	Subtotal            decimal.Decimal        `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Shipping            decimal.Decimal        `gorm:"column:shipping;type:numeric(12,2);not null"`
	Discount            decimal.Decimal        `gorm:"column:discount;type:numeric(12,2);not null"`
	GST                 decimal.Decimal        `gorm:"column:gst;type:numeric(12,2);not null"`
	Total               decimal.Decimal        `gorm:"column:total;type:numeric(12,2);not null"`
	Currency            enums.Currency         `gorm:"column:currency;type:text;not null"`
	DeliveryAddress     types.Address          `gorm:"column:delivery_address;type:jsonb;not null"`
	Recipient           types.Recipient        `gorm:"column:recipient;type:jsonb;not null"`
	AppliedOffers       types.AppliedOffers    `gorm:"column:applied_offers;type:jsonb;not null"`
	CheckoutFingerprint string                 `gorm:"column:checkout_fingerprint;not null;index"`
	PaymentProvider     *enums.PaymentProvider `gorm:"column:payment_provider;type:text"`
	PaymentIntentID     *string                `gorm:"column:payment_intent_id"`
	Items               []OrderItem            `gorm:"foreignKey:OrderID;references:ID"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem freezes the price and tax of a line at purchase time.
type OrderItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TaxRate        decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null"`
	TaxInclusive   bool            `gorm:"column:tax_inclusive;not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// OrderStatusHistory is the append-only status log; the latest row mirrors
// Order.Status.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Note      *string           `gorm:"column:note"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

func (h *OrderStatusHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

// CheckoutAttempt maps a checkout fingerprint to the order it produced, per customer.
type CheckoutAttempt struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID  uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_checkout_attempts_customer_fingerprint,priority:1"`
	Fingerprint string    `gorm:"column:fingerprint;not null;uniqueIndex:ux_checkout_attempts_customer_fingerprint,priority:2"`
	StoreID     uuid.UUID `gorm:"column:store_id;type:uuid;not null"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	AttemptedAt time.Time `gorm:"column:attempted_at;not null;index"`
}

func (a *CheckoutAttempt) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

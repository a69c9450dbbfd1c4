package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

// ShippingRule prices delivery for the products assigned to it.
type ShippingRule struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	StoreID              uuid.UUID                `gorm:"column:store_id;type:uuid;not null;index"`
	Name                 string                   `gorm:"column:name;not null"`
	IsActive             bool                     `gorm:"column:is_active;not null"`
	GroupingEnabled      bool                     `gorm:"column:grouping_enabled;not null"`
	InternationalAllowed bool                     `gorm:"column:international_allowed;not null"`
	Conditions           types.ShippingConditions `gorm:"column:conditions;type:jsonb;not null"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ShippingRule) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// ProductShippingRule assigns at most one shipping rule to a product.
type ProductShippingRule struct {
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	ShippingRuleID uuid.UUID `gorm:"column:shipping_rule_id;type:uuid;not null;index"`
}

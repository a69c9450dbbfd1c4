package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

// Offer is a store promotion. It is live while active and inside
// [ValidFrom, ValidUntil).
type Offer struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	StoreID           uuid.UUID            `gorm:"column:store_id;type:uuid;not null;index"`
	Name              string               `gorm:"column:name;not null"`
	DisplayText       *string              `gorm:"column:display_text"`
	OfferType         enums.OfferType      `gorm:"column:offer_type;type:text;not null"`
	Scope             types.OfferScope     `gorm:"column:scope;type:jsonb;not null"`
	RequiresCode      bool                 `gorm:"column:requires_code;not null"`
	Code              *string              `gorm:"column:code"`
	IsActive          bool                 `gorm:"column:is_active;not null"`
	ValidFrom         time.Time            `gorm:"column:valid_from;not null"`
	ValidUntil        time.Time            `gorm:"column:valid_until;not null"`
	MinPurchaseAmount decimal.NullDecimal  `gorm:"column:min_purchase_amount;type:numeric(12,2)"`
	MinItemCount      *int                 `gorm:"column:min_item_count"`
	DiscountParams    types.DiscountParams `gorm:"column:discount_params;type:jsonb;not null"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
)

// Store is a seller on the marketplace. Platform-owned stores settle directly
// into the platform account; every other store needs a linked payout account.
type Store struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	IsPlatformOwned bool      `gorm:"column:is_platform_owned;not null"`
	IsActive        bool      `gorm:"column:is_active;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Store) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// StorePaymentAccount links a store to its settlement sub-account at a gateway.
type StorePaymentAccount struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	StoreID         uuid.UUID             `gorm:"column:store_id;type:uuid;not null;uniqueIndex:ux_store_payment_accounts_store_provider,priority:1"`
	Provider        enums.PaymentProvider `gorm:"column:provider;type:text;not null;uniqueIndex:ux_store_payment_accounts_store_provider,priority:2"`
	LinkedAccountID string                `gorm:"column:linked_account_id;not null"`
	IsActive        bool                  `gorm:"column:is_active;not null"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *StorePaymentAccount) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

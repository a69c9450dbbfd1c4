package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the catalog row the checkout prices and reserves against.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StoreID       uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	Name          string          `gorm:"column:name;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock         int             `gorm:"column:stock;not null;default:0"`
	ReservedStock int             `gorm:"column:reserved_stock;not null;default:0"`
	TaxRate       decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null;default:0"`
	TaxInclusive  bool            `gorm:"column:tax_inclusive;not null"`
	IsActive      bool            `gorm:"column:is_active;not null"`
	Tags          []ProductTag    `gorm:"foreignKey:ProductID;references:ID"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Available is the stock not yet held by open orders.
func (p Product) Available() int {
	return p.Stock - p.ReservedStock
}

// ProductTag is one free-form tag on a product.
type ProductTag struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Tag       string    `gorm:"column:tag;primaryKey"`
}

// CollectionProduct records a product's membership in a curated collection.
type CollectionProduct struct {
	CollectionID uuid.UUID `gorm:"column:collection_id;type:uuid;primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey;index"`
}

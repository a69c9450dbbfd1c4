package types

import (
	"database/sql/driver"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
)

// OfferScope lists what an offer applies to. StoreWide wins over the id lists.
type OfferScope struct {
	StoreWide     bool        `json:"storeWide"`
	ProductIDs    []uuid.UUID `json:"productIds,omitempty"`
	CollectionIDs []uuid.UUID `json:"collectionIds,omitempty"`
	Tags          []string    `json:"productTags,omitempty"`
}

// Value serializes the scope to JSON.
func (s OfferScope) Value() (driver.Value, error) {
	return jsonValue(s)
}

// Scan decodes JSONB into the scope.
func (s *OfferScope) Scan(value interface{}) error {
	if value == nil {
		*s = OfferScope{}
		return nil
	}
	return scanJSON(value, s)
}

// DiscountParams carries the type-specific numbers of an offer. Only the
// fields relevant to the offer type are read.
type DiscountParams struct {
	Percentage  decimal.Decimal `json:"percentage"`
	FixedAmount decimal.Decimal `json:"fixedAmount"`
	BuyN        int             `json:"buyN"`
	GetK        int             `json:"getK"`
}

// Value serializes the params to JSON.
func (d DiscountParams) Value() (driver.Value, error) {
	return jsonValue(d)
}

// Scan decodes JSONB into the params.
func (d *DiscountParams) Scan(value interface{}) error {
	if value == nil {
		*d = DiscountParams{}
		return nil
	}
	return scanJSON(value, d)
}

// AppliedOffer is the audit record of one offer that reduced an order total.
type AppliedOffer struct {
	OfferID        uuid.UUID       `json:"offerId"`
	OfferName      string          `json:"offerName"`
	OfferType      enums.OfferType `json:"offerType"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	ProductIDs     []uuid.UUID     `json:"productIds"`
}

// AppliedOffers is persisted as a JSONB array on orders.
type AppliedOffers []AppliedOffer

// Value serializes the list to JSON.
func (a AppliedOffers) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return jsonValue(a)
}

// Scan decodes JSONB into the list.
func (a *AppliedOffers) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	var decoded AppliedOffers
	if err := scanJSON(value, &decoded); err != nil {
		return err
	}
	*a = decoded
	return nil
}

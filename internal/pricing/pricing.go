// Package pricing holds the value types shared by the eligibility, discount,
// shipping and billing engines.
package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// CartLine is an immutable catalog snapshot of one product in a cart.
type CartLine struct {
	ProductID     uuid.UUID
	StoreID       uuid.UUID
	Quantity      int
	UnitPrice     decimal.Decimal
	TaxRate       decimal.Decimal
	TaxInclusive  bool
	Tags          []string
	CollectionIDs []uuid.UUID
}

// Total is the pre-discount line value.
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Offer is a live promotion as the discount engine sees it.
type Offer struct {
	ID                uuid.UUID
	StoreID           uuid.UUID
	Name              string
	Type              enums.OfferType
	Scope             types.OfferScope
	RequiresCode      bool
	Code              string
	ValidFrom         time.Time
	ValidUntil        time.Time
	MinPurchaseAmount decimal.Decimal
	MinItemCount      int
	Params            types.DiscountParams
}

// ActiveAt reports whether at falls inside [ValidFrom, ValidUntil).
func (o Offer) ActiveAt(at time.Time) bool {
	return !at.Before(o.ValidFrom) && at.Before(o.ValidUntil)
}

// ShippingRule is a store's delivery pricing policy.
type ShippingRule struct {
	ID                   uuid.UUID
	StoreID              uuid.UUID
	GroupingEnabled      bool
	InternationalAllowed bool
	Conditions           types.ShippingConditions
}

// LineDiscountState is the running price and quantity of a line while offers
// are applied in sequence.
type LineDiscountState struct {
	Line                CartLine
	CurrentPrice        decimal.Decimal
	CurrentQuantity     int
	DiscountAccumulated decimal.Decimal
}

// NewLineState starts a line at its catalog price and full quantity.
func NewLineState(line CartLine) LineDiscountState {
	return LineDiscountState{
		Line:                line,
		CurrentPrice:        line.UnitPrice,
		CurrentQuantity:     line.Quantity,
		DiscountAccumulated: decimal.Zero,
	}
}

// CurrentTotal is the post-discount value of the line.
func (s LineDiscountState) CurrentTotal() decimal.Decimal {
	return s.CurrentPrice.Mul(decimal.NewFromInt(int64(s.CurrentQuantity)))
}

// AppliedOffer reports one offer that produced a discount.
type AppliedOffer struct {
	OfferID        uuid.UUID       `json:"offerId"`
	Name           string          `json:"offerName"`
	Type           enums.OfferType `json:"offerType"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	ProductIDs     []uuid.UUID     `json:"productIds"`
}

// BillingResult is the authoritative price breakdown of one store group.
type BillingResult struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Shipping      decimal.Decimal `json:"shipping"`
	Discount      decimal.Decimal `json:"discount"`
	GST           decimal.Decimal `json:"gst"`
	Total         decimal.Decimal `json:"total"`
	AppliedOffers []AppliedOffer  `json:"appliedOffers"`
}

// Percent returns amount * pct / 100 without intermediate rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Round2 rounds a money value for reporting.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// ToMinorUnits converts a two-decimal amount to integer paise/cents.
func ToMinorUnits(v decimal.Decimal) int64 {
	return v.Round(2).Shift(2).IntPart()
}

// PersistedOffers converts applied offers into their stored form.
func PersistedOffers(applied []AppliedOffer) types.AppliedOffers {
	out := make(types.AppliedOffers, 0, len(applied))
	for _, a := range applied {
		out = append(out, types.AppliedOffer{
			OfferID:        a.OfferID,
			OfferName:      a.Name,
			OfferType:      a.Type,
			DiscountAmount: Round2(a.DiscountAmount),
			ProductIDs:     a.ProductIDs,
		})
	}
	return out
}

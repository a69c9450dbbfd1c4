// Package billing composes subtotal, shipping, discount and tax into the
// payable total of one store group.
package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kupilikula/rocketshop-market-backend/internal/discount"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/internal/shipping"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

type discounter interface {
	Apply(ctx context.Context, storeID uuid.UUID, lines []pricing.CartLine, codes []string) (discount.Result, error)
}

type shipper interface {
	Quote(ctx context.Context, storeID uuid.UUID, lines []pricing.CartLine, addr types.Address) (shipping.Quote, error)
}

// Aggregator runs the discount and shipping engines and folds in tax.
type Aggregator struct {
	discounts   discounter
	shipping    shipper
	taxShipping bool
}

func NewAggregator(discounts discounter, shipping shipper) *Aggregator {
	return &Aggregator{discounts: discounts, shipping: shipping}
}

// WithShippingTax turns on tax on the shipping charge at the highest rate
// among the tax-exclusive lines. Tax-inclusive lines never set the shipping
// rate, so a cart of only inclusive lines ships untaxed.
func (a *Aggregator) WithShippingTax(enabled bool) *Aggregator {
	a.taxShipping = enabled
	return a
}

// Breakdown is the billing result plus the post-discount line states the
// order items are written from.
type Breakdown struct {
	Result pricing.BillingResult
	Lines  []pricing.LineDiscountState
}

// Compute returns the billing of one store group. An address that a line
// cannot ship to fails with UNDELIVERABLE_ADDRESS.
func (a *Aggregator) Compute(ctx context.Context, storeID uuid.UUID, lines []pricing.CartLine, codes []string, addr types.Address) (Breakdown, error) {
	disc, err := a.discounts.Apply(ctx, storeID, lines, codes)
	if err != nil {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load offers")
	}

	quote, err := a.shipping.Quote(ctx, storeID, lines, addr)
	if err != nil {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load shipping rules")
	}
	if !quote.Deliverable {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeUndeliverable, "cannot ship to this address").
			WithDetails(map[string]any{
				"storeId":   storeID.String(),
				"productId": quote.BlockedProductID.String(),
				"country":   addr.Country,
			})
	}

	return Breakdown{
		Result: Compose(lines, disc, quote.Cost, a.taxShipping),
		Lines:  disc.Lines,
	}, nil
}

// Compose is the arithmetic core. Components are summed at full precision,
// rounded to two places, and the total is derived from the rounded parts so
// the five reported fields always reconcile.
func Compose(lines []pricing.CartLine, disc discount.Result, shippingCost decimal.Decimal, taxShipping bool) pricing.BillingResult {
	subtotal := decimal.Zero
	maxRate := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total())
		// shipping is taxed like the exclusive lines; an all-inclusive cart adds none
		if !line.TaxInclusive && line.TaxRate.GreaterThan(maxRate) {
			maxRate = line.TaxRate
		}
	}

	gst := decimal.Zero
	for _, state := range disc.Lines {
		if state.Line.TaxInclusive {
			continue
		}
		gst = gst.Add(pricing.Percent(state.CurrentTotal(), state.Line.TaxRate))
	}
	if taxShipping && shippingCost.IsPositive() {
		gst = gst.Add(pricing.Percent(shippingCost, maxRate))
	}

	result := pricing.BillingResult{
		Subtotal:      pricing.Round2(subtotal),
		Shipping:      pricing.Round2(shippingCost),
		Discount:      pricing.Round2(disc.TotalDiscount),
		GST:           pricing.Round2(gst),
		AppliedOffers: disc.AppliedOffers,
	}
	if result.AppliedOffers == nil {
		result.AppliedOffers = []pricing.AppliedOffer{}
	}
	result.Total = result.Subtotal.Add(result.Shipping).Add(result.GST).Sub(result.Discount)
	return result
}

// Equal reports whether two billing results agree on all five money fields.
func Equal(a, b pricing.BillingResult) bool {
	return a.Subtotal.Equal(b.Subtotal) &&
		a.Shipping.Equal(b.Shipping) &&
		a.Discount.Equal(b.Discount) &&
		a.GST.Equal(b.GST) &&
		a.Total.Equal(b.Total)
}

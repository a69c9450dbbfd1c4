package discount

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(price string, qty int) pricing.CartLine {
	return pricing.CartLine{ProductID: uuid.New(), Quantity: qty, UnitPrice: d(price), TaxRate: d("18")}
}

func storeWide(t enums.OfferType, params types.DiscountParams) pricing.Offer {
	return pricing.Offer{ID: uuid.New(), Name: string(t), Type: t, Scope: types.OfferScope{StoreWide: true}, Params: params}
}

func requireConserved(t *testing.T, res Result) {
	t.Helper()
	offerSum := decimal.Zero
	for _, a := range res.AppliedOffers {
		offerSum = offerSum.Add(a.DiscountAmount)
	}
	lineSum := decimal.Zero
	for _, l := range res.Lines {
		lineSum = lineSum.Add(l.DiscountAccumulated)
	}
	tolerance := d("0.01")
	require.True(t, res.TotalDiscount.Sub(offerSum).Abs().LessThanOrEqual(tolerance), "total %s vs offers %s", res.TotalDiscount, offerSum)
	require.True(t, res.TotalDiscount.Sub(lineSum).Abs().LessThanOrEqual(tolerance), "total %s vs lines %s", res.TotalDiscount, lineSum)
}

func TestBuyTwoGetOneFree(t *testing.T) {
	lines := []pricing.CartLine{line("100", 5)}
	bogo := storeWide(enums.OfferTypeBuyNGetKFree, types.DiscountParams{BuyN: 2, GetK: 1})

	res := Compute([]pricing.Offer{bogo}, lines, nil)
	require.True(t, res.TotalDiscount.Equal(d("100")))
	require.Equal(t, 4, res.Lines[0].CurrentQuantity)
	require.True(t, res.Lines[0].CurrentPrice.Equal(d("100")))
	requireConserved(t, res)
}

func TestBogoRunsBeforePercentage(t *testing.T) {
	lines := []pricing.CartLine{line("100", 5)}
	pct := storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("10")})
	bogo := storeWide(enums.OfferTypeBuyNGetKFree, types.DiscountParams{BuyN: 2, GetK: 1})

	// percentage listed first still runs after BOGO
	res := Compute([]pricing.Offer{pct, bogo}, lines, nil)
	require.Len(t, res.AppliedOffers, 2)
	require.Equal(t, enums.OfferTypeBuyNGetKFree, res.AppliedOffers[0].Type)
	require.True(t, res.AppliedOffers[0].DiscountAmount.Equal(d("100")))
	// 10% of 100 on the 4 remaining units
	require.True(t, res.AppliedOffers[1].DiscountAmount.Equal(d("40")))
	require.True(t, res.TotalDiscount.Equal(d("140")))
	require.True(t, res.Lines[0].CurrentPrice.Equal(d("90")))
	requireConserved(t, res)
}

func TestBogoFreesCheapestUnitsFirst(t *testing.T) {
	cheap := line("50", 1)
	pricey := line("300", 2)
	bogo := storeWide(enums.OfferTypeBuyNGetKFree, types.DiscountParams{BuyN: 2, GetK: 1})

	res := Compute([]pricing.Offer{bogo}, []pricing.CartLine{pricey, cheap}, nil)
	require.True(t, res.TotalDiscount.Equal(d("50")))
	require.Equal(t, 2, res.Lines[0].CurrentQuantity)
	require.Equal(t, 0, res.Lines[1].CurrentQuantity)
	requireConserved(t, res)
}

func TestPercentagesCompound(t *testing.T) {
	lines := []pricing.CartLine{line("200", 2)}
	first := storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("10")})
	second := storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("10")})

	res := Compute([]pricing.Offer{first, second}, lines, nil)
	// 200 -> 180 -> 162 per unit
	require.True(t, res.Lines[0].CurrentPrice.Equal(d("162")))
	require.True(t, res.TotalDiscount.Equal(d("76")))
	requireConserved(t, res)
}

func TestFixedAmountNeverGoesNegative(t *testing.T) {
	lines := []pricing.CartLine{line("30", 2), line("500", 1)}
	fixed := storeWide(enums.OfferTypeFixedAmountOff, types.DiscountParams{FixedAmount: d("50")})

	res := Compute([]pricing.Offer{fixed}, lines, nil)
	require.True(t, res.Lines[0].CurrentPrice.IsZero())
	require.True(t, res.Lines[1].CurrentPrice.Equal(d("450")))
	require.True(t, res.TotalDiscount.Equal(d("110")))
	requireConserved(t, res)
}

func TestMalformedOffersAreSkipped(t *testing.T) {
	lines := []pricing.CartLine{line("100", 3)}
	offers := []pricing.Offer{
		storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("0")}),
		storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("-5")}),
		storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("150")}),
		storeWide(enums.OfferTypeFixedAmountOff, types.DiscountParams{}),
		storeWide(enums.OfferTypeBuyNGetKFree, types.DiscountParams{BuyN: 0, GetK: 1}),
		storeWide(enums.OfferTypeBuyNGetKFree, types.DiscountParams{BuyN: 2, GetK: 0}),
		storeWide(enums.OfferType("loyalty_points"), types.DiscountParams{Percentage: d("10")}),
	}

	res := Compute(offers, lines, nil)
	require.True(t, res.TotalDiscount.IsZero())
	require.Empty(t, res.AppliedOffers)
	require.True(t, res.Lines[0].CurrentPrice.Equal(d("100")))
}

func TestMinimumsUseOriginalEligibleLines(t *testing.T) {
	lines := []pricing.CartLine{line("100", 3)}
	bogo := storeWide(enums.OfferTypeBuyNGetKFree, types.DiscountParams{BuyN: 2, GetK: 1})
	pct := storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("10")})
	// after BOGO the discounted subtotal is 200, but qualification uses the original 300
	pct.MinPurchaseAmount = d("300")
	pct.MinItemCount = 3

	res := Compute([]pricing.Offer{bogo, pct}, lines, nil)
	require.Len(t, res.AppliedOffers, 2)

	pct.MinPurchaseAmount = d("300.01")
	res = Compute([]pricing.Offer{bogo, pct}, lines, nil)
	require.Len(t, res.AppliedOffers, 1)

	pct.MinPurchaseAmount = decimal.Zero
	pct.MinItemCount = 4
	res = Compute([]pricing.Offer{bogo, pct}, lines, nil)
	require.Len(t, res.AppliedOffers, 1)
}

func TestCodeGatedOfferNeedsCode(t *testing.T) {
	lines := []pricing.CartLine{line("100", 1)}
	gated := storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("20")})
	gated.RequiresCode = true
	gated.Code = "WELCOME20"

	require.True(t, Compute([]pricing.Offer{gated}, lines, nil).TotalDiscount.IsZero())
	res := Compute([]pricing.Offer{gated}, lines, []string{"WELCOME20"})
	require.True(t, res.TotalDiscount.Equal(d("20")))
}

func TestScopedOfferOnlyTouchesEligibleLines(t *testing.T) {
	tagged := line("100", 1)
	tagged.Tags = []string{"festive"}
	plain := line("100", 1)
	offer := pricing.Offer{ID: uuid.New(), Type: enums.OfferTypePercentageOff, Scope: types.OfferScope{Tags: []string{"festive"}}, Params: types.DiscountParams{Percentage: d("50")}}

	res := Compute([]pricing.Offer{offer}, []pricing.CartLine{tagged, plain}, nil)
	require.True(t, res.TotalDiscount.Equal(d("50")))
	require.Equal(t, []uuid.UUID{tagged.ProductID}, res.AppliedOffers[0].ProductIDs)
	require.True(t, res.Lines[1].DiscountAccumulated.IsZero())
}

func TestPassesDoNotMutateInput(t *testing.T) {
	state := NewState([]pricing.CartLine{line("100", 3)})
	offer := storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("10")})

	next, amount := PercentageOff(state, offer, []int{0})
	require.True(t, amount.Equal(d("30")))
	require.True(t, state.Line(0).CurrentPrice.Equal(d("100")))
	require.True(t, next.Line(0).CurrentPrice.Equal(d("90")))
	require.True(t, next.AccumulatedTotal().Equal(d("30")))
}

func TestComputeIsDeterministic(t *testing.T) {
	lines := []pricing.CartLine{line("99.99", 4), line("12.5", 7)}
	offers := []pricing.Offer{
		storeWide(enums.OfferTypeFixedAmountOff, types.DiscountParams{FixedAmount: d("3.33")}),
		storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("12.5")}),
		storeWide(enums.OfferTypeBuyNGetKFree, types.DiscountParams{BuyN: 3, GetK: 1}),
	}
	a := Compute(offers, lines, nil)
	b := Compute(offers, lines, nil)
	require.Equal(t, a.TotalDiscount.String(), b.TotalDiscount.String())
	require.Equal(t, len(a.AppliedOffers), len(b.AppliedOffers))
	requireConserved(t, a)
}

type fakeOffers struct {
	offers []pricing.Offer
	err    error
}

func (f fakeOffers) ActiveOffers(context.Context, uuid.UUID, time.Time) ([]pricing.Offer, error) {
	return f.offers, f.err
}

func TestEngineFiltersExpiredOffers(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	live := storeWide(enums.OfferTypePercentageOff, types.DiscountParams{Percentage: d("10")})
	live.ValidFrom, live.ValidUntil = now.Add(-time.Hour), now.Add(time.Hour)
	expired := storeWide(enums.OfferTypeFixedAmountOff, types.DiscountParams{FixedAmount: d("5")})
	expired.ValidFrom, expired.ValidUntil = now.Add(-2*time.Hour), now

	engine := NewEngine(fakeOffers{offers: []pricing.Offer{live, expired}}).WithClock(func() time.Time { return now })
	res, err := engine.Apply(context.Background(), uuid.New(), []pricing.CartLine{line("100", 1)}, nil)
	require.NoError(t, err)
	require.Len(t, res.AppliedOffers, 1)
	require.Equal(t, live.ID, res.AppliedOffers[0].OfferID)

	failing := NewEngine(fakeOffers{err: errors.New("boom")})
	_, err = failing.Apply(context.Background(), uuid.New(), nil, nil)
	require.Error(t, err)
}

package discount

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
)

// Pass applies one offer to the eligible line indexes and returns the new
// state together with the discount it produced.
type Pass func(in State, offer pricing.Offer, eligible []int) (State, decimal.Decimal)

// BuyNGetKFree makes the cheapest units free: every N+K eligible units yield
// K free ones, taken from lines in ascending current price.
func BuyNGetKFree(in State, offer pricing.Offer, eligible []int) (State, decimal.Decimal) {
	buyN, getK := offer.Params.BuyN, offer.Params.GetK
	if buyN <= 0 || getK <= 0 {
		return in, decimal.Zero
	}

	out := in.clone()
	order := make([]int, len(eligible))
	copy(order, eligible)
	sort.SliceStable(order, func(i, j int) bool {
		return out.lines[order[i]].CurrentPrice.LessThan(out.lines[order[j]].CurrentPrice)
	})

	totalQty := 0
	for _, idx := range order {
		totalQty += out.lines[idx].CurrentQuantity
	}
	remaining := (totalQty / (buyN + getK)) * getK
	if remaining <= 0 {
		return in, decimal.Zero
	}

	amount := decimal.Zero
	for _, idx := range order {
		if remaining <= 0 {
			break
		}
		line := &out.lines[idx]
		free := min(line.CurrentQuantity, remaining)
		if free <= 0 {
			continue
		}
		value := line.CurrentPrice.Mul(decimal.NewFromInt(int64(free)))
		line.CurrentQuantity -= free
		line.DiscountAccumulated = line.DiscountAccumulated.Add(value)
		amount = amount.Add(value)
		remaining -= free
	}
	return out, amount
}

// PercentageOff lowers the current unit price of each eligible line by pct so
// later offers compound on the reduced price.
func PercentageOff(in State, offer pricing.Offer, eligible []int) (State, decimal.Decimal) {
	pct := offer.Params.Percentage
	if !pct.IsPositive() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return in, decimal.Zero
	}
	return perUnit(in, eligible, func(price decimal.Decimal) decimal.Decimal {
		return pricing.Percent(price, pct)
	})
}

// FixedAmountOff takes a flat amount off each remaining unit, never below zero.
func FixedAmountOff(in State, offer pricing.Offer, eligible []int) (State, decimal.Decimal) {
	amt := offer.Params.FixedAmount
	if !amt.IsPositive() {
		return in, decimal.Zero
	}
	return perUnit(in, eligible, func(price decimal.Decimal) decimal.Decimal {
		return decimal.Min(price, amt)
	})
}

func perUnit(in State, eligible []int, unitDiscount func(price decimal.Decimal) decimal.Decimal) (State, decimal.Decimal) {
	out := in.clone()
	amount := decimal.Zero
	for _, idx := range eligible {
		line := &out.lines[idx]
		if line.CurrentQuantity <= 0 {
			continue
		}
		per := unitDiscount(line.CurrentPrice)
		value := per.Mul(decimal.NewFromInt(int64(line.CurrentQuantity)))
		line.CurrentPrice = line.CurrentPrice.Sub(per)
		line.DiscountAccumulated = line.DiscountAccumulated.Add(value)
		amount = amount.Add(value)
	}
	return out, amount
}

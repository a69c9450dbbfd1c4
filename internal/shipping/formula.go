package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

// Mode names how BaseCost is read.
type Mode string

const (
	// ModePerOrder charges BaseCost once per group. With extra-item pricing
	// on, units beyond the free allowance add ExtraPerItemCost each.
	ModePerOrder Mode = "perOrder"
	// ModePerUnit charges BaseCost for every unit in the group.
	ModePerUnit Mode = "perUnit"
)

// ModeOf reports which reading of BaseCost the modifiers select.
func ModeOf(m types.CostModifiers) Mode {
	if m.BaseCostPerUnit && !m.ExtraPerItemEnabled {
		return ModePerUnit
	}
	return ModePerOrder
}

// Evaluate prices one group: base formula, then threshold discount, then cap.
func Evaluate(cond types.ShippingCondition, itemCount int, groupSubtotal decimal.Decimal) decimal.Decimal {
	m := cond.CostModifiers

	var cost decimal.Decimal
	switch ModeOf(m) {
	case ModePerUnit:
		cost = cond.BaseCost.Mul(decimal.NewFromInt(int64(itemCount)))
	default:
		cost = cond.BaseCost
		if m.ExtraPerItemEnabled {
			extra := max(0, itemCount-m.FreeItemCount)
			cost = cost.Add(m.ExtraPerItemCost.Mul(decimal.NewFromInt(int64(extra))))
		}
	}

	if m.DiscountEnabled && groupSubtotal.GreaterThan(m.DiscountThreshold) {
		cost = pricing.Percent(cost, decimal.NewFromInt(100).Sub(m.DiscountPercentage))
	}

	// a zero cap is treated as unset
	if m.CapEnabled && m.CapAmount.IsPositive() {
		cost = decimal.Min(cost, m.CapAmount)
	}

	if cost.IsNegative() {
		return decimal.Zero
	}
	return cost
}

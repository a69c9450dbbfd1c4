// Package shipping prices delivery for a store group from its products'
// shipping rules and the destination address.
package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

// RuleSource resolves the active rule assigned to each product of a store.
// Products without an assignment are absent from the map.
type RuleSource interface {
	RulesForProducts(ctx context.Context, storeID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]pricing.ShippingRule, error)
}

// Quote is the shipping outcome. When Deliverable is false Cost carries no
// meaning and BlockedProductID names the first line that cannot ship.
type Quote struct {
	Cost             decimal.Decimal
	Deliverable      bool
	BlockedProductID uuid.UUID
}

// Engine reads rules fresh for every quote.
type Engine struct {
	rules    RuleSource
	domestic string
}

func NewEngine(rules RuleSource, domesticCountry string) *Engine {
	return &Engine{rules: rules, domestic: normalize(domesticCountry)}
}

// Quote loads the rules for lines and prices them for addr.
func (e *Engine) Quote(ctx context.Context, storeID uuid.UUID, lines []pricing.CartLine, addr types.Address) (Quote, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	rules, err := e.rules.RulesForProducts(ctx, storeID, ids)
	if err != nil {
		return Quote{}, fmt.Errorf("load shipping rules for store %s: %w", storeID, err)
	}
	return Calculate(rules, lines, addr, e.domestic), nil
}

type group struct {
	rule     pricing.ShippingRule
	items    int
	subtotal decimal.Decimal
}

// Calculate is the I/O-free evaluator. Lines sharing a grouping-enabled rule
// are priced together; every other line is priced alone.
func Calculate(rules map[uuid.UUID]pricing.ShippingRule, lines []pricing.CartLine, addr types.Address, domesticCountry string) Quote {
	domestic := normalize(domesticCountry)
	country := normalize(addr.Country)
	foreign := country != "" && country != domestic

	var groups []*group
	byRule := map[uuid.UUID]*group{}

	for _, line := range lines {
		rule, ok := rules[line.ProductID]
		if !ok {
			continue
		}
		if foreign && !rule.InternationalAllowed {
			return Quote{Deliverable: false, BlockedProductID: line.ProductID}
		}

		if rule.GroupingEnabled {
			if g, seen := byRule[rule.ID]; seen {
				g.items += line.Quantity
				g.subtotal = g.subtotal.Add(line.Total())
				continue
			}
		}
		g := &group{rule: rule, items: line.Quantity, subtotal: line.Total()}
		groups = append(groups, g)
		if rule.GroupingEnabled {
			byRule[rule.ID] = g
		}
	}

	total := decimal.Zero
	for _, g := range groups {
		cond, ok := MatchCondition(g.rule.Conditions, addr, domestic)
		if !ok {
			continue
		}
		total = total.Add(Evaluate(cond, g.items, g.subtotal))
	}
	return Quote{Cost: total, Deliverable: true}
}

// MatchCondition returns the first condition whose predicates all hold. A
// condition with no predicates is the fallback when nothing specific matches.
func MatchCondition(conds types.ShippingConditions, addr types.Address, domestic string) (types.ShippingCondition, bool) {
	var fallback *types.ShippingCondition
	for i := range conds {
		cond := conds[i]
		if len(cond.When) == 0 {
			if fallback == nil {
				fallback = &conds[i]
			}
			continue
		}
		if allMatch(cond.When, addr, domestic) {
			return cond, true
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return types.ShippingCondition{}, false
}

func allMatch(preds []types.LocationPredicate, addr types.Address, domestic string) bool {
	for _, p := range preds {
		if !Matches(p, addr, domestic) {
			return false
		}
	}
	return true
}

// Matches evaluates a single location predicate. Comparison ignores case and
// surrounding space. Unknown predicate kinds never match.
func Matches(p types.LocationPredicate, addr types.Address, domestic string) bool {
	if p.Type != "" && p.Type != types.PredicateTypeLocation {
		return false
	}

	if p.LocationType == types.LocationTypeInternational {
		country := normalize(addr.Country)
		return country != "" && country != normalize(domestic)
	}

	if p.Operator != types.PredicateOperatorIn {
		return false
	}

	sameCountry := normalize(addr.Country) == normalize(p.Country)
	sameState := normalize(addr.State) == normalize(p.State)
	sameCity := normalize(addr.City) == normalize(p.City)

	switch p.LocationType {
	case types.LocationTypeCity:
		return sameCity && sameState && sameCountry
	case types.LocationTypeState:
		return sameState && sameCountry
	case types.LocationTypeCountry:
		return sameCountry
	default:
		return false
	}
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

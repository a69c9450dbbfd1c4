// Package discount applies a store's live offers to a cart, one pass per
// offer in type-priority order.
package discount

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kupilikula/rocketshop-market-backend/internal/eligibility"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
)

// OfferSource returns the offers of a store that are active at the given instant.
type OfferSource interface {
	ActiveOffers(ctx context.Context, storeID uuid.UUID, at time.Time) ([]pricing.Offer, error)
}

// Result is the outcome of running every offer against a cart.
type Result struct {
	TotalDiscount decimal.Decimal
	AppliedOffers []pricing.AppliedOffer
	Lines         []pricing.LineDiscountState
}

// Engine loads offers fresh on every call; nothing is cached between requests.
type Engine struct {
	offers OfferSource
	now    func() time.Time
}

func NewEngine(offers OfferSource) *Engine {
	return &Engine{offers: offers, now: time.Now}
}

// WithClock overrides the time source used for offer validity.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Apply fetches the store's live offers and applies them to lines.
func (e *Engine) Apply(ctx context.Context, storeID uuid.UUID, lines []pricing.CartLine, codes []string) (Result, error) {
	at := e.now().UTC()
	offers, err := e.offers.ActiveOffers(ctx, storeID, at)
	if err != nil {
		return Result{}, fmt.Errorf("load offers for store %s: %w", storeID, err)
	}
	live := make([]pricing.Offer, 0, len(offers))
	for _, offer := range offers {
		if offer.ActiveAt(at) {
			live = append(live, offer)
		}
	}
	return Compute(live, lines, codes), nil
}

// Compute runs the passes without any I/O. Offers are ordered by type priority;
// within a type the input order is kept.
func Compute(offers []pricing.Offer, lines []pricing.CartLine, codes []string) Result {
	ordered := make([]pricing.Offer, len(offers))
	copy(ordered, offers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Type.Priority() < ordered[j].Type.Priority()
	})

	state := NewState(lines)
	applied := make([]pricing.AppliedOffer, 0)
	total := decimal.Zero

	for _, offer := range ordered {
		eligible := eligibleIndexes(offer, lines, codes)
		if len(eligible) == 0 {
			continue
		}
		if !qualifies(offer, lines, eligible) {
			continue
		}

		pass := passFor(offer.Type)
		if pass == nil {
			continue
		}
		next, amount := pass(state, offer, eligible)
		if !amount.IsPositive() {
			continue
		}
		state = next
		total = total.Add(amount)

		productIDs := make([]uuid.UUID, 0, len(eligible))
		for _, idx := range eligible {
			productIDs = append(productIDs, lines[idx].ProductID)
		}
		applied = append(applied, pricing.AppliedOffer{
			OfferID:        offer.ID,
			Name:           offer.Name,
			Type:           offer.Type,
			DiscountAmount: amount,
			ProductIDs:     productIDs,
		})
	}

	return Result{
		TotalDiscount: total,
		AppliedOffers: applied,
		Lines:         state.Lines(),
	}
}

func eligibleIndexes(offer pricing.Offer, lines []pricing.CartLine, codes []string) []int {
	var out []int
	for i, line := range lines {
		if eligibility.LineEligible(offer, line, codes) {
			out = append(out, i)
		}
	}
	return out
}

// qualifies checks minimums against the original lines so one offer's effect
// never changes whether another qualifies. Zero minimums are not enforced.
func qualifies(offer pricing.Offer, lines []pricing.CartLine, eligible []int) bool {
	subtotal := decimal.Zero
	items := 0
	for _, idx := range eligible {
		subtotal = subtotal.Add(lines[idx].Total())
		items += lines[idx].Quantity
	}
	if offer.MinPurchaseAmount.IsPositive() && subtotal.LessThan(offer.MinPurchaseAmount) {
		return false
	}
	if offer.MinItemCount > 0 && items < offer.MinItemCount {
		return false
	}
	return true
}

func passFor(t enums.OfferType) Pass {
	switch t {
	case enums.OfferTypeBuyNGetKFree:
		return BuyNGetKFree
	case enums.OfferTypePercentageOff:
		return PercentageOff
	case enums.OfferTypeFixedAmountOff:
		return FixedAmountOff
	default:
		return nil
	}
}

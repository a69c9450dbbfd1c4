// Package eligibility decides whether an offer's scope covers a product.
package eligibility

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

// Attributes are the catalog facts scope matching needs.
type Attributes struct {
	Tags          []string
	CollectionIDs []uuid.UUID
}

// AttributeSource looks up a product's tags and collections. found is false for
// unknown products.
type AttributeSource interface {
	ProductAttributes(ctx context.Context, productID uuid.UUID) (attrs Attributes, found bool, err error)
}

// Resolver answers eligibility for products known only by id.
type Resolver struct {
	attrs AttributeSource
}

func NewResolver(attrs AttributeSource) *Resolver {
	return &Resolver{attrs: attrs}
}

// IsEligible reports whether offer applies to productID given the codes the
// customer entered. Unknown products are ineligible.
func (r *Resolver) IsEligible(ctx context.Context, productID uuid.UUID, offer pricing.Offer, codes []string) (bool, error) {
	if !CodeSatisfied(offer, codes) {
		return false, nil
	}
	if offer.Scope.StoreWide {
		return true, nil
	}

	attrs, found, err := r.attrs.ProductAttributes(ctx, productID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return InScope(offer.Scope, productID, attrs), nil
}

// LineEligible is the lookup-free form used when the line already carries
// its catalog snapshot.
func LineEligible(offer pricing.Offer, line pricing.CartLine, codes []string) bool {
	if !CodeSatisfied(offer, codes) {
		return false
	}
	if offer.Scope.StoreWide {
		return true
	}
	return InScope(offer.Scope, line.ProductID, Attributes{Tags: line.Tags, CollectionIDs: line.CollectionIDs})
}

// CodeSatisfied is true when the offer needs no code or one of codes matches it.
func CodeSatisfied(offer pricing.Offer, codes []string) bool {
	if !offer.RequiresCode {
		return true
	}
	want := strings.TrimSpace(offer.Code)
	if want == "" {
		return false
	}
	for _, code := range codes {
		if strings.TrimSpace(code) == want {
			return true
		}
	}
	return false
}

// InScope tests product id, collection and tag membership; any one suffices.
func InScope(scope types.OfferScope, productID uuid.UUID, attrs Attributes) bool {
	if scope.StoreWide {
		return true
	}
	if slices.Contains(scope.ProductIDs, productID) {
		return true
	}
	for _, id := range scope.CollectionIDs {
		if slices.Contains(attrs.CollectionIDs, id) {
			return true
		}
	}
	for _, tag := range scope.Tags {
		if slices.Contains(attrs.Tags, tag) {
			return true
		}
	}
	return false
}

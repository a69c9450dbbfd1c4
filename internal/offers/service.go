package offers

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kupilikula/rocketshop-market-backend/internal/eligibility"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
)

type offerRepository interface {
	ActiveOffers(ctx context.Context, storeID uuid.UUID, at time.Time) ([]pricing.Offer, error)
	FindByCode(ctx context.Context, storeID uuid.UUID, code string, at time.Time) (pricing.Offer, error)
}

type eligibilityResolver interface {
	IsEligible(ctx context.Context, productID uuid.UUID, offer pricing.Offer, codes []string) (bool, error)
}

var _ eligibilityResolver = (*eligibility.Resolver)(nil)

// ApplicableQuery selects offers by product and/or collection.
type ApplicableQuery struct {
	StoreID      uuid.UUID
	ProductID    *uuid.UUID
	CollectionID *uuid.UUID
}

// Service exposes offer lookups for storefront screens.
type Service interface {
	ValidateCode(ctx context.Context, storeID uuid.UUID, code string) (pricing.Offer, error)
	Applicable(ctx context.Context, q ApplicableQuery) ([]pricing.Offer, error)
}

type service struct {
	repo     offerRepository
	resolver eligibilityResolver
	now      func() time.Time
}

func NewService(repo offerRepository, resolver eligibilityResolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offer repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("eligibility resolver required")
	}
	return &service{repo: repo, resolver: resolver, now: time.Now}, nil
}

// ValidateCode succeeds when a live code-gated offer with exactly that code
// exists for the store.
func (s *service) ValidateCode(ctx context.Context, storeID uuid.UUID, code string) (pricing.Offer, error) {
	if storeID == uuid.Nil || strings.TrimSpace(code) == "" {
		return pricing.Offer{}, pkgerrors.New(pkgerrors.CodeValidation, "storeId and offerCode are required")
	}
	return s.repo.FindByCode(ctx, storeID, code, s.now().UTC())
}

// Applicable lists live offers covering the product, or naming the
// collection. Product matches go through the eligibility resolver without
// codes, so code-gated offers only surface through the collection path.
func (s *service) Applicable(ctx context.Context, q ApplicableQuery) ([]pricing.Offer, error) {
	if q.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storeId is required")
	}
	if q.ProductID == nil && q.CollectionID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId or collectionId is required")
	}

	live, err := s.repo.ActiveOffers(ctx, q.StoreID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	out := make([]pricing.Offer, 0, len(live))
	for _, offer := range live {
		if q.CollectionID != nil && slices.Contains(offer.Scope.CollectionIDs, *q.CollectionID) {
			out = append(out, offer)
			continue
		}
		if q.ProductID == nil {
			continue
		}
		ok, err := s.resolver.IsEligible(ctx, *q.ProductID, offer, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve offer eligibility")
		}
		if ok {
			out = append(out, offer)
		}
	}
	return out, nil
}

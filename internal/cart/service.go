// Package cart previews the billing of a multi-store cart and checks single
// items against available stock. Nothing here writes.
package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kupilikula/rocketshop-market-backend/internal/billing"
	"github.com/kupilikula/rocketshop-market-backend/internal/catalog"
	"github.com/kupilikula/rocketshop-market-backend/internal/checkout/helpers"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

type lineSource interface {
	Lines(ctx context.Context, storeID uuid.UUID, items []catalog.Item) ([]pricing.CartLine, error)
	CheckItem(ctx context.Context, productID uuid.UUID, quantity int) (catalog.Availability, error)
}

type billingComputer interface {
	Compute(ctx context.Context, storeID uuid.UUID, lines []pricing.CartLine, codes []string, addr types.Address) (billing.Breakdown, error)
}

// Service exposes the read-only cart operations.
type Service interface {
	Summary(ctx context.Context, req SummaryRequest) (Summary, error)
	ValidateItem(ctx context.Context, productID uuid.UUID, quantity int) (catalog.Availability, error)
}

// SummaryRequest is the cart as the client holds it.
type SummaryRequest struct {
	DeliveryAddress types.Address `json:"deliveryAddress"`
	Items           []SummaryItem `json:"items" validate:"required,min=1,dive"`
	OfferCodes      []StoreCodes  `json:"offerCodes" validate:"omitempty,dive"`
}

// SummaryItem is one cart line tagged with its store.
type SummaryItem struct {
	StoreID   uuid.UUID `json:"storeId" validate:"required"`
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// StoreCodes carries the offer codes entered for one store.
type StoreCodes struct {
	StoreID uuid.UUID `json:"storeId" validate:"required"`
	Codes   []string  `json:"codes"`
}

// StoreSummary is the billing preview of one store, or why it has none.
type StoreSummary struct {
	StoreID uuid.UUID              `json:"storeId"`
	Billing *pricing.BillingResult `json:"billing,omitempty"`
	Err     error                  `json:"-"`
}

// Summary lists stores in first-seen order.
type Summary struct {
	Stores []StoreSummary `json:"stores"`
}

type service struct {
	catalog lineSource
	billing billingComputer
	logg    *logger.Logger
	limit   int
}

// NewService builds the cart service. limit bounds concurrent store billing.
func NewService(catalog lineSource, billing billingComputer, logg *logger.Logger, limit int) (Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if billing == nil {
		return nil, fmt.Errorf("billing aggregator required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if limit <= 0 {
		limit = 1
	}
	return &service{catalog: catalog, billing: billing, logg: logg, limit: limit}, nil
}

// Summary bills every store of the cart independently. A store that cannot
// be billed carries its error and does not affect the others.
func (s *service) Summary(ctx context.Context, req SummaryRequest) (Summary, error) {
	if len(req.Items) == 0 {
		return Summary{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if req.DeliveryAddress.Normalized().Country == "" {
		return Summary{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery details are incomplete").
			WithDetails(map[string]any{"missing": []string{"deliveryAddress.country"}})
	}

	order, grouped := groupByStore(req.Items)
	codes := make(map[uuid.UUID][]string, len(req.OfferCodes))
	for _, entry := range req.OfferCodes {
		codes[entry.StoreID] = append(codes[entry.StoreID], entry.Codes...)
	}

	out := make([]StoreSummary, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, storeID := range order {
		g.Go(func() error {
			out[i] = s.summarizeStore(gctx, storeID, grouped[storeID], codes[storeID], req.DeliveryAddress)
			return nil
		})
	}
	_ = g.Wait()
	return Summary{Stores: out}, nil
}

func (s *service) summarizeStore(ctx context.Context, storeID uuid.UUID, items []catalog.Item, codes []string, addr types.Address) StoreSummary {
	lines, err := s.catalog.Lines(ctx, storeID, helpers.MergeItems(items))
	if err == nil {
		var breakdown billing.Breakdown
		breakdown, err = s.billing.Compute(ctx, storeID, lines, codes, addr)
		if err == nil {
			return StoreSummary{StoreID: storeID, Billing: &breakdown.Result}
		}
	}
	if pkgerrors.As(err) == nil {
		err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "billing preview failed")
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"store_id": storeID.String(),
		"code":     string(pkgerrors.CodeOf(err)),
	}), "cart.summary.store_failed")
	return StoreSummary{StoreID: storeID, Err: err}
}

// ValidateItem reports whether quantity units of the product can be bought.
func (s *service) ValidateItem(ctx context.Context, productID uuid.UUID, quantity int) (catalog.Availability, error) {
	if productID == uuid.Nil {
		return catalog.Availability{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		return catalog.Availability{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return s.catalog.CheckItem(ctx, productID, quantity)
}

func groupByStore(items []SummaryItem) ([]uuid.UUID, map[uuid.UUID][]catalog.Item) {
	order := []uuid.UUID{}
	grouped := make(map[uuid.UUID][]catalog.Item)
	for _, item := range items {
		if _, seen := grouped[item.StoreID]; !seen {
			order = append(order, item.StoreID)
		}
		grouped[item.StoreID] = append(grouped[item.StoreID], catalog.Item{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return order, grouped
}

package payments

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	pkgstripe "github.com/kupilikula/rocketshop-market-backend/pkg/stripe"
)

type intentCreator func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)

// StripeGateway creates PaymentIntents. Stripe carries at most one
// destination per intent, which fits one intent per store group.
type StripeGateway struct {
	create intentCreator
	logg   *logger.Logger
}

func NewStripeGateway(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*StripeGateway, error) {
	if _, err := pkgstripe.Configure(ctx, cfg, logg); err != nil {
		return nil, err
	}
	return &StripeGateway{create: paymentintent.New, logg: logg}, nil
}

func (g *StripeGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if g == nil || g.create == nil {
		return Intent{}, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe gateway not configured")
	}
	if err := req.CheckTransfers(); err != nil {
		return Intent{}, err
	}
	if len(req.Transfers) > 1 {
		return Intent{}, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe supports one transfer destination per intent")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(string(req.Currency))),
	}
	params.Context = ctx
	if req.Receipt != "" {
		params.SetIdempotencyKey("intent-" + req.Receipt)
		params.AddMetadata("receipt", req.Receipt)
	}
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}
	if len(req.Transfers) == 1 {
		t := req.Transfers[0]
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(t.Account),
			Amount:      stripe.Int64(t.AmountMinor),
		}
		params.AddMetadata("store_id", t.StoreID.String())
	}

	pi, err := g.create(params)
	if err != nil {
		return Intent{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "payment gateway request failed")
	}
	if pi == nil || strings.TrimSpace(pi.ID) == "" {
		return Intent{}, pkgerrors.New(pkgerrors.CodeUpstream, "payment gateway returned no intent id")
	}

	return Intent{
		ID:          pi.ID,
		Provider:    enums.PaymentProviderStripe,
		Status:      string(pi.Status),
		AmountMinor: pi.Amount,
		Currency:    enums.Currency(strings.ToUpper(string(pi.Currency))),
	}, nil
}

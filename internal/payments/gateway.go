// Package payments creates split-settlement payment intents at the configured
// gateway and verifies client-side payment signatures.
package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
)

// Transfer routes part of an intent to a store's settlement account.
type Transfer struct {
	StoreID     uuid.UUID
	Account     string
	AmountMinor int64
}

// IntentRequest is everything a gateway needs to open a payment intent.
type IntentRequest struct {
	Receipt     string
	AmountMinor int64
	Currency    enums.Currency
	Transfers   []Transfer
	Notes       map[string]string
}

// Intent is the gateway's answer; ID is never empty on success.
type Intent struct {
	ID          string                `json:"id"`
	Provider    enums.PaymentProvider `json:"provider"`
	Status      string                `json:"status"`
	AmountMinor int64                 `json:"amountMinor"`
	Currency    enums.Currency        `json:"currency"`
	KeyID       string                `json:"keyId,omitempty"`
}

// Gateway opens payment intents.
type Gateway interface {
	Provider() enums.PaymentProvider
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
}

// CheckTransfers enforces that transfers, when present, add up to the intent
// amount exactly.
func (r IntentRequest) CheckTransfers() error {
	if r.AmountMinor <= 0 {
		return pkgerrors.New(pkgerrors.CodeInternalConsistency, "intent amount must be positive")
	}
	if len(r.Transfers) == 0 {
		return nil
	}
	var sum int64
	for _, t := range r.Transfers {
		if strings.TrimSpace(t.Account) == "" || t.AmountMinor <= 0 {
			return pkgerrors.New(pkgerrors.CodeInternalConsistency, "invalid transfer instruction")
		}
		sum += t.AmountMinor
	}
	if sum != r.AmountMinor {
		return pkgerrors.New(pkgerrors.CodeInternalConsistency, "transfer amounts do not match intent amount").
			WithDetails(map[string]any{"amount": r.AmountMinor, "transfers": sum})
	}
	return nil
}

// NewGateway builds the gateway selected by cfg.Payments.Provider.
func NewGateway(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Payments.Provider)) {
	case config.PaymentProviderRazorpay:
		return NewRazorpayGateway(cfg.Razorpay, logg)
	case config.PaymentProviderStripe:
		return NewStripeGateway(ctx, cfg.Stripe, logg)
	default:
		return nil, fmt.Errorf("unsupported payments provider %q", cfg.Payments.Provider)
	}
}

package checkout

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kupilikula/rocketshop-market-backend/internal/catalog"
	"github.com/kupilikula/rocketshop-market-backend/internal/payments"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

// Request is one customer checkout spanning one or more stores.
type Request struct {
	CustomerID      uuid.UUID       `json:"-"`
	DeliveryAddress types.Address   `json:"deliveryAddress"`
	Recipient       types.Recipient `json:"recipient"`
	Stores          []StoreRequest  `json:"stores" validate:"required,min=1,dive"`
}

// StoreRequest is the part of the cart sold by one store.
type StoreRequest struct {
	StoreID       uuid.UUID        `json:"storeId" validate:"required"`
	Items         []catalog.Item   `json:"items" validate:"required,min=1,dive"`
	AppliedOffers []OfferRef       `json:"appliedOffers"`
	Billing       *BillingSnapshot `json:"billing,omitempty"`
}

// OfferRef is an offer the client believes applies. Codes unlock code-gated
// offers; ids only feed the fingerprint.
type OfferRef struct {
	OfferID   uuid.UUID `json:"offerId"`
	OfferCode string    `json:"offerCode,omitempty"`
}

// BillingSnapshot is what the client displayed; it is compared, never trusted.
type BillingSnapshot struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	GST      decimal.Decimal `json:"gst"`
	Total    decimal.Decimal `json:"total"`
}

func (b BillingSnapshot) asResult() pricing.BillingResult {
	return pricing.BillingResult{Subtotal: b.Subtotal, Shipping: b.Shipping, Discount: b.Discount, GST: b.GST, Total: b.Total}
}

func (s StoreRequest) codes() []string {
	codes := []string{}
	for _, ref := range s.AppliedOffers {
		if code := strings.TrimSpace(ref.OfferCode); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func (s StoreRequest) offerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.AppliedOffers))
	for _, ref := range s.AppliedOffers {
		ids = append(ids, ref.OfferID)
	}
	return ids
}

type GroupStatus string

const (
	GroupCommitted GroupStatus = "committed"
	GroupFailed    GroupStatus = "failed"
)

// GroupResult is the outcome of one store group.
type GroupResult struct {
	StoreID       uuid.UUID              `json:"storeId"`
	Status        GroupStatus            `json:"status"`
	OrderID       *uuid.UUID             `json:"orderId,omitempty"`
	Fingerprint   string                 `json:"fingerprint,omitempty"`
	Billing       *pricing.BillingResult `json:"billing,omitempty"`
	PaymentIntent *payments.Intent       `json:"paymentIntent,omitempty"`
	Err           error                  `json:"-"`
}

// Result holds the group outcomes in request order.
type Result struct {
	Groups []GroupResult `json:"groups"`
}

// AllCommitted reports whether every store group committed.
func (r Result) AllCommitted() bool {
	for _, g := range r.Groups {
		if g.Status != GroupCommitted {
			return false
		}
	}
	return len(r.Groups) > 0
}

// StatusCode is 201 when every group committed and 200 for a partial result.
func (r Result) StatusCode() int {
	if r.AllCommitted() {
		return http.StatusCreated
	}
	return http.StatusOK
}

// SingleFailure returns the error of a one-store checkout that failed, so the
// caller can answer with the plain error envelope.
func (r Result) SingleFailure() error {
	if len(r.Groups) == 1 && r.Groups[0].Status == GroupFailed {
		return r.Groups[0].Err
	}
	return nil
}

func failed(storeID uuid.UUID, fingerprint string, err error) GroupResult {
	if pkgerrors.As(err) == nil {
		err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}
	return GroupResult{StoreID: storeID, Status: GroupFailed, Fingerprint: fingerprint, Err: err}
}

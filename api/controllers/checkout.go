package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kupilikula/rocketshop-market-backend/api/middleware"
	"github.com/kupilikula/rocketshop-market-backend/api/responses"
	"github.com/kupilikula/rocketshop-market-backend/api/validators"
	checkoutsvc "github.com/kupilikula/rocketshop-market-backend/internal/checkout"
	"github.com/kupilikula/rocketshop-market-backend/internal/payments"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

// Checkout places one order per store group of the submitted cart.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		customerID := middleware.CustomerIDFromContext(r.Context())
		if customerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing"))
			return
		}

		var payload checkoutsvc.Request
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.CustomerID = customerID

		result, err := svc.Checkout(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if failure := result.SingleFailure(); failure != nil {
			responses.WriteError(r.Context(), logg, w, failure)
			return
		}

		responses.WriteSuccessStatus(w, result.StatusCode(), newCheckoutResponse(result))
	}
}

type checkoutResponse struct {
	Groups []checkoutGroupResponse `json:"groups"`
}

type checkoutGroupResponse struct {
	StoreID       uuid.UUID              `json:"storeId"`
	Status        string                 `json:"status"`
	OrderID       *uuid.UUID             `json:"orderId,omitempty"`
	Fingerprint   string                 `json:"fingerprint,omitempty"`
	Billing       *pricing.BillingResult `json:"billing,omitempty"`
	PaymentIntent *payments.Intent       `json:"paymentIntent,omitempty"`
	Error         *types.APIError        `json:"error,omitempty"`
}

func newCheckoutResponse(result checkoutsvc.Result) checkoutResponse {
	groups := make([]checkoutGroupResponse, 0, len(result.Groups))
	for _, g := range result.Groups {
		resp := checkoutGroupResponse{
			StoreID:       g.StoreID,
			Status:        string(g.Status),
			OrderID:       g.OrderID,
			Fingerprint:   g.Fingerprint,
			Billing:       g.Billing,
			PaymentIntent: g.PaymentIntent,
		}
		if g.Err != nil {
			public := responses.PublicError(g.Err)
			resp.Error = &public
		}
		groups = append(groups, resp)
	}
	return checkoutResponse{Groups: groups}
}

package controllers

import (
	"net/http"

	"github.com/kupilikula/rocketshop-market-backend/api/responses"
	"github.com/kupilikula/rocketshop-market-backend/api/validators"
	"github.com/kupilikula/rocketshop-market-backend/internal/payments"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
)

type verifyPaymentRequest struct {
	GatewayOrderID string `json:"gatewayOrderId" validate:"required"`
	PaymentID      string `json:"paymentId" validate:"required"`
	Signature      string `json:"signature" validate:"required"`
}

// PaymentsVerify checks the gateway's payment signature. It confirms the
// callback data only and leaves order state alone.
func PaymentsVerify(secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment verification unavailable"))
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !payments.VerifySignature(secret, payload.GatewayOrderID, payload.PaymentID, payload.Signature) {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "gateway_order_id", payload.GatewayOrderID), "payments.verify.mismatch")
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment signature"))
			return
		}
		responses.WriteSuccess(w, map[string]bool{"verified": true})
	}
}

package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kupilikula/rocketshop-market-backend/api/responses"
	"github.com/kupilikula/rocketshop-market-backend/api/validators"
	"github.com/kupilikula/rocketshop-market-backend/internal/cart"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

// CartSummary previews billing for every store in the cart.
func CartSummary(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload cart.SummaryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stores := make([]cartStoreResponse, 0, len(summary.Stores))
		for _, s := range summary.Stores {
			resp := cartStoreResponse{StoreID: s.StoreID, Billing: s.Billing}
			if s.Err != nil {
				public := responses.PublicError(s.Err)
				resp.Error = &public
			}
			stores = append(stores, resp)
		}
		responses.WriteSuccess(w, cartSummaryResponse{Stores: stores})
	}
}

type cartSummaryResponse struct {
	Stores []cartStoreResponse `json:"stores"`
}

type cartStoreResponse struct {
	StoreID uuid.UUID              `json:"storeId"`
	Billing *pricing.BillingResult `json:"billing,omitempty"`
	Error   *types.APIError        `json:"error,omitempty"`
}

type validateItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CartValidateItem checks one line against unreserved stock.
func CartValidateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload validateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		availability, err := svc.ValidateItem(r.Context(), payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, availability)
	}
}

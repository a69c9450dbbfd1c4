package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kupilikula/rocketshop-market-backend/api/responses"
	"github.com/kupilikula/rocketshop-market-backend/api/validators"
	"github.com/kupilikula/rocketshop-market-backend/internal/offers"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

const maxOfferCodeLen = 64

type offerResponse struct {
	ID                uuid.UUID            `json:"offerId"`
	StoreID           uuid.UUID            `json:"storeId"`
	Name              string               `json:"offerName"`
	Type              enums.OfferType      `json:"offerType"`
	Scope             types.OfferScope     `json:"scope"`
	RequiresCode      bool                 `json:"requiresCode"`
	Code              string               `json:"offerCode,omitempty"`
	ValidFrom         time.Time            `json:"validFrom"`
	ValidUntil        time.Time            `json:"validUntil"`
	MinPurchaseAmount *decimal.Decimal     `json:"minPurchaseAmount,omitempty"`
	MinItemCount      int                  `json:"minItemCount,omitempty"`
	Params            types.DiscountParams `json:"discountDetails"`
}

func newOfferResponse(o pricing.Offer) offerResponse {
	resp := offerResponse{
		ID:           o.ID,
		StoreID:      o.StoreID,
		Name:         o.Name,
		Type:         o.Type,
		Scope:        o.Scope,
		RequiresCode: o.RequiresCode,
		Code:         o.Code,
		ValidFrom:    o.ValidFrom,
		ValidUntil:   o.ValidUntil,
		MinItemCount: o.MinItemCount,
		Params:       o.Params,
	}
	if o.MinPurchaseAmount.IsPositive() {
		amount := o.MinPurchaseAmount
		resp.MinPurchaseAmount = &amount
	}
	return resp
}

type validateCodeRequest struct {
	StoreID   uuid.UUID `json:"storeId" validate:"required"`
	OfferCode string    `json:"offerCode" validate:"required"`
}

// OffersValidateCode resolves an entered code to its live offer.
func OffersValidateCode(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer service unavailable"))
			return
		}

		var payload validateCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.ValidateCode(r.Context(), payload.StoreID, validators.SanitizeString(payload.OfferCode, maxOfferCodeLen))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"valid": true, "offer": newOfferResponse(offer)})
	}
}

// OffersApplicable lists live offers for a product or collection.
func OffersApplicable(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offer service unavailable"))
			return
		}

		storeID, err := validators.ParseQueryUUID(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if storeID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "storeId is required"))
			return
		}
		productID, err := validators.ParseQueryUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		collectionID, err := validators.ParseQueryUUID(r, "collectionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, err := svc.Applicable(r.Context(), offers.ApplicableQuery{
			StoreID:      *storeID,
			ProductID:    productID,
			CollectionID: collectionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]offerResponse, 0, len(found))
		for _, o := range found {
			out = append(out, newOfferResponse(o))
		}
		responses.WriteSuccess(w, map[string]any{"offers": out})
	}
}

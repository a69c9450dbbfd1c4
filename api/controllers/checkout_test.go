package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kupilikula/rocketshop-market-backend/api/middleware"
	checkoutsvc "github.com/kupilikula/rocketshop-market-backend/internal/checkout"
	"github.com/kupilikula/rocketshop-market-backend/internal/payments"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
)

type stubCheckoutService struct {
	result checkoutsvc.Result
	err    error
	got    checkoutsvc.Request
}

func (s *stubCheckoutService) Checkout(_ context.Context, req checkoutsvc.Request) (checkoutsvc.Result, error) {
	s.got = req
	return s.result, s.err
}

const checkoutBody = `{
	"deliveryAddress": {"street1": "1 MG Road", "city": "Bengaluru", "state": "Karnataka", "postalCode": "560001", "country": "India"},
	"recipient": {"name": "Asha", "phone": "+919900000000"},
	"stores": [{"storeId": "9b2d4c8e-8f4e-4a57-9f6a-1d2f3a4b5c6d", "items": [{"productId": "0c9a7e7e-2f1b-4b8e-9a43-5e6f7a8b9c0d", "quantity": 2}]}]
}`

func serveCheckout(svc checkoutsvc.Service, customerID uuid.UUID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if customerID != uuid.Nil {
		req = req.WithContext(middleware.WithCustomerID(req.Context(), customerID))
	}
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)
	return resp
}

func committed(storeID uuid.UUID) checkoutsvc.GroupResult {
	orderID := uuid.New()
	return checkoutsvc.GroupResult{
		StoreID:       storeID,
		Status:        checkoutsvc.GroupCommitted,
		OrderID:       &orderID,
		Fingerprint:   "fp",
		Billing:       &pricing.BillingResult{Total: decimal.NewFromInt(522)},
		PaymentIntent: &payments.Intent{ID: "order_1", Provider: enums.PaymentProviderRazorpay, AmountMinor: 52200, Currency: enums.CurrencyINR},
	}
}

func TestCheckoutCreated(t *testing.T) {
	t.Parallel()
	customerID := uuid.New()
	storeID := uuid.New()
	svc := &stubCheckoutService{result: checkoutsvc.Result{Groups: []checkoutsvc.GroupResult{committed(storeID)}}}

	resp := serveCheckout(svc, customerID, checkoutBody)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, customerID, svc.got.CustomerID)
	require.Len(t, svc.got.Stores, 1)
	require.Equal(t, 2, svc.got.Stores[0].Items[0].Quantity)

	var body struct {
		Data struct {
			Groups []struct {
				StoreID       uuid.UUID `json:"storeId"`
				Status        string    `json:"status"`
				PaymentIntent struct {
					ID          string `json:"id"`
					AmountMinor int64  `json:"amountMinor"`
				} `json:"paymentIntent"`
			} `json:"groups"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, storeID, body.Data.Groups[0].StoreID)
	require.Equal(t, "committed", body.Data.Groups[0].Status)
	require.Equal(t, int64(52200), body.Data.Groups[0].PaymentIntent.AmountMinor)
}

func TestCheckoutSingleFailureUsesErrorEnvelope(t *testing.T) {
	t.Parallel()
	failure := pkgerrors.New(pkgerrors.CodeStock, "insufficient stock").WithDetails(map[string]any{"available": 0})
	svc := &stubCheckoutService{result: checkoutsvc.Result{Groups: []checkoutsvc.GroupResult{
		{StoreID: uuid.New(), Status: checkoutsvc.GroupFailed, Err: failure},
	}}}

	resp := serveCheckout(svc, uuid.New(), checkoutBody)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.JSONEq(t, `{"error":{"code":"INSUFFICIENT_STOCK","message":"insufficient stock","details":{"available":0}}}`, resp.Body.String())
}

func TestCheckoutPartialResult(t *testing.T) {
	t.Parallel()
	svc := &stubCheckoutService{result: checkoutsvc.Result{Groups: []checkoutsvc.GroupResult{
		committed(uuid.New()),
		{StoreID: uuid.New(), Status: checkoutsvc.GroupFailed, Err: pkgerrors.New(pkgerrors.CodeInternalConsistency, "transfer sum mismatch")},
	}}}

	resp := serveCheckout(svc, uuid.New(), checkoutBody)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data checkoutResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Data.Groups, 2)
	require.Nil(t, body.Data.Groups[0].Error)
	require.Equal(t, string(pkgerrors.CodeInternalConsistency), body.Data.Groups[1].Error.Code)
	require.Equal(t, "internal server error", body.Data.Groups[1].Error.Message)
}

func TestCheckoutRejectsBadInput(t *testing.T) {
	t.Parallel()
	svc := &stubCheckoutService{}

	require.Equal(t, http.StatusUnauthorized, serveCheckout(svc, uuid.Nil, checkoutBody).Code)
	require.Equal(t, http.StatusBadRequest, serveCheckout(svc, uuid.New(), `{"stores": []}`).Code)
	require.Equal(t, http.StatusBadRequest, serveCheckout(svc, uuid.New(), `{"unknown": 1}`).Code)

	svc.err = pkgerrors.New(pkgerrors.CodeValidation, "delivery details are incomplete")
	require.Equal(t, http.StatusBadRequest, serveCheckout(svc, uuid.New(), checkoutBody).Code)
}

package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/dbtest"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
)

func newTestRazorpay(t *testing.T, handler http.HandlerFunc) *RazorpayGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g, err := NewRazorpayGateway(config.RazorpayConfig{
		KeyID:       "rzp_test_key",
		KeySecret:   "shh",
		BaseURL:     srv.URL,
		Timeout:     time.Second,
		MaxAttempts: 3,
	}, nil, WithRetryBase(time.Millisecond))
	require.NoError(t, err)
	return g
}

func TestCheckTransfers(t *testing.T) {
	storeID := uuid.New()
	ok := IntentRequest{AmountMinor: 52200, Transfers: []Transfer{{StoreID: storeID, Account: "acc_1", AmountMinor: 52200}}}
	require.NoError(t, ok.CheckTransfers())

	require.NoError(t, IntentRequest{AmountMinor: 100}.CheckTransfers())

	short := IntentRequest{AmountMinor: 52200, Transfers: []Transfer{{Account: "acc_1", AmountMinor: 52199}}}
	require.True(t, pkgerrors.IsCode(short.CheckTransfers(), pkgerrors.CodeInternalConsistency))

	noAccount := IntentRequest{AmountMinor: 10, Transfers: []Transfer{{AmountMinor: 10}}}
	require.True(t, pkgerrors.IsCode(noAccount.CheckTransfers(), pkgerrors.CodeInternalConsistency))

	require.True(t, pkgerrors.IsCode(IntentRequest{}.CheckTransfers(), pkgerrors.CodeInternalConsistency))
}

func TestRazorpayCreateIntent(t *testing.T) {
	storeID := uuid.New()
	g := newTestRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_test_key", user)
		require.Equal(t, "shh", pass)

		var body razorpayOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, int64(52200), body.Amount)
		require.Equal(t, "INR", body.Currency)
		require.Equal(t, "order-1", body.Receipt)
		require.Len(t, body.Transfers, 1)
		require.Equal(t, "acc_store", body.Transfers[0].Account)
		require.Equal(t, int64(52200), body.Transfers[0].Amount)
		require.Equal(t, storeID.String(), body.Transfers[0].Notes["store_id"])

		_ = json.NewEncoder(w).Encode(razorpayOrder{ID: "order_Rz1", Amount: body.Amount, Currency: body.Currency, Status: "created"})
	})

	intent, err := g.CreateIntent(context.Background(), IntentRequest{
		Receipt:     "order-1",
		AmountMinor: 52200,
		Currency:    enums.CurrencyINR,
		Transfers:   []Transfer{{StoreID: storeID, Account: "acc_store", AmountMinor: 52200}},
	})
	require.NoError(t, err)
	require.Equal(t, "order_Rz1", intent.ID)
	require.Equal(t, enums.PaymentProviderRazorpay, intent.Provider)
	require.Equal(t, "created", intent.Status)
	require.Equal(t, "rzp_test_key", intent.KeyID)
}

func TestRazorpayRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	g := newTestRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(razorpayOrder{ID: "order_ok", Amount: 100, Currency: "INR", Status: "created"})
	})

	intent, err := g.CreateIntent(context.Background(), IntentRequest{AmountMinor: 100, Currency: enums.CurrencyINR})
	require.NoError(t, err)
	require.Equal(t, "order_ok", intent.ID)
	require.Equal(t, int32(3), calls.Load())
}

// dropConnection reads the request and closes the socket without replying.
func dropConnection(t *testing.T, w http.ResponseWriter, r *http.Request) {
	t.Helper()
	_, _ = io.Copy(io.Discard, r.Body)
	conn, _, err := w.(http.Hijacker).Hijack()
	require.NoError(t, err)
	_ = conn.Close()
}

func TestRazorpayLostResponseRecoversOrderByReceipt(t *testing.T) {
	var posts, lookups atomic.Int32
	g := newTestRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			posts.Add(1)
			dropConnection(t, w, r)
		case http.MethodGet:
			lookups.Add(1)
			require.Equal(t, "order-7", r.URL.Query().Get("receipt"))
			_ = json.NewEncoder(w).Encode(razorpayOrderList{Count: 1, Items: []razorpayOrder{
				{ID: "order_first", Amount: 100, Currency: "INR", Receipt: "order-7", Status: "created"},
			}})
		}
	})

	intent, err := g.CreateIntent(context.Background(), IntentRequest{Receipt: "order-7", AmountMinor: 100, Currency: enums.CurrencyINR})
	require.NoError(t, err)
	require.Equal(t, "order_first", intent.ID)
	require.Equal(t, int32(1), posts.Load(), "order is not created twice")
	require.Equal(t, int32(1), lookups.Load())
}

func TestRazorpayLostResponseReposts(t *testing.T) {
	var posts, lookups atomic.Int32
	g := newTestRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			lookups.Add(1)
			_ = json.NewEncoder(w).Encode(razorpayOrderList{})
			return
		}
		if posts.Add(1) == 1 {
			dropConnection(t, w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(razorpayOrder{ID: "order_second", Amount: 100, Currency: "INR", Receipt: "order-8", Status: "created"})
	})

	intent, err := g.CreateIntent(context.Background(), IntentRequest{Receipt: "order-8", AmountMinor: 100, Currency: enums.CurrencyINR})
	require.NoError(t, err)
	require.Equal(t, "order_second", intent.ID)
	require.Equal(t, int32(2), posts.Load())
	require.Equal(t, int32(1), lookups.Load())
}

func TestRazorpayLostResponseWithoutReceiptIsNotRetried(t *testing.T) {
	var posts atomic.Int32
	g := newTestRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		dropConnection(t, w, r)
	})

	_, err := g.CreateIntent(context.Background(), IntentRequest{AmountMinor: 100, Currency: enums.CurrencyINR})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
	require.Equal(t, int32(1), posts.Load())
}

func TestRazorpayFailures(t *testing.T) {
	var calls atomic.Int32
	g := newTestRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"bad amount"}}`))
	})
	_, err := g.CreateIntent(context.Background(), IntentRequest{AmountMinor: 100, Currency: enums.CurrencyINR})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
	require.Equal(t, int32(1), calls.Load(), "client errors are not retried")

	noID := newTestRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"created"}`))
	})
	_, err = noID.CreateIntent(context.Background(), IntentRequest{AmountMinor: 100, Currency: enums.CurrencyINR})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))

	_, err = noID.CreateIntent(context.Background(), IntentRequest{AmountMinor: 100, Transfers: []Transfer{{Account: "a", AmountMinor: 1}}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternalConsistency))
}

func TestNewRazorpayGatewayRequiresKeys(t *testing.T) {
	_, err := NewRazorpayGateway(config.RazorpayConfig{KeySecret: "x"}, nil)
	require.Error(t, err)
	_, err = NewRazorpayGateway(config.RazorpayConfig{KeyID: "x"}, nil)
	require.Error(t, err)
}

func TestStripeCreateIntent(t *testing.T) {
	storeID := uuid.New()
	var got *stripe.PaymentIntentParams
	g := &StripeGateway{create: func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		got = params
		return &stripe.PaymentIntent{ID: "pi_123", Amount: *params.Amount, Currency: stripe.Currency(*params.Currency), Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, nil
	}}

	intent, err := g.CreateIntent(context.Background(), IntentRequest{
		Receipt:     "order-9",
		AmountMinor: 1999,
		Currency:    enums.CurrencyUSD,
		Transfers:   []Transfer{{StoreID: storeID, Account: "acct_1", AmountMinor: 1999}},
	})
	require.NoError(t, err)
	require.Equal(t, "pi_123", intent.ID)
	require.Equal(t, enums.CurrencyUSD, intent.Currency)
	require.Equal(t, "usd", *got.Currency)
	require.Equal(t, "acct_1", *got.TransferData.Destination)
	require.Equal(t, int64(1999), *got.TransferData.Amount)
	require.Equal(t, "order-9", got.Metadata["receipt"])
	require.Equal(t, storeID.String(), got.Metadata["store_id"])
}

func TestStripeCreateIntentFailures(t *testing.T) {
	failing := &StripeGateway{create: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return nil, errors.New("card_declined")
	}}
	_, err := failing.CreateIntent(context.Background(), IntentRequest{AmountMinor: 10, Currency: enums.CurrencyUSD})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))

	empty := &StripeGateway{create: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return &stripe.PaymentIntent{}, nil
	}}
	_, err = empty.CreateIntent(context.Background(), IntentRequest{AmountMinor: 10, Currency: enums.CurrencyUSD})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))

	_, err = empty.CreateIntent(context.Background(), IntentRequest{AmountMinor: 10, Transfers: []Transfer{
		{Account: "a", AmountMinor: 5}, {Account: "b", AmountMinor: 5},
	}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConfiguration))
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")
	require.Len(t, sig, 64)
	require.True(t, VerifySignature("secret", "order_1", "pay_1", sig))
	require.False(t, VerifySignature("secret", "order_1", "pay_2", sig))
	require.False(t, VerifySignature("other", "order_1", "pay_1", sig))
	require.False(t, VerifySignature("secret", "order_1", "pay_1", ""))
}

func TestAccountsResolve(t *testing.T) {
	db := dbtest.Open(t)
	accounts := NewAccountsRepository(db)
	ctx := context.Background()

	platform := models.Store{Name: "house", IsPlatformOwned: true, IsActive: true}
	seller := models.Store{Name: "seller", IsActive: true}
	unlinked := models.Store{Name: "new seller", IsActive: true}
	closed := models.Store{Name: "closed", IsActive: false}
	for _, s := range []*models.Store{&platform, &seller, &unlinked, &closed} {
		require.NoError(t, db.Create(s).Error)
	}
	require.NoError(t, db.Create(&models.StorePaymentAccount{
		StoreID: seller.ID, Provider: enums.PaymentProviderRazorpay, LinkedAccountID: "acc_seller", IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&models.StorePaymentAccount{
		StoreID: unlinked.ID, Provider: enums.PaymentProviderRazorpay, LinkedAccountID: "acc_old", IsActive: false,
	}).Error)

	got, err := accounts.Resolve(ctx, platform.ID, enums.PaymentProviderRazorpay)
	require.NoError(t, err)
	require.True(t, got.PlatformOwned)
	require.Empty(t, got.TransfersFor(100))

	got, err = accounts.Resolve(ctx, seller.ID, enums.PaymentProviderRazorpay)
	require.NoError(t, err)
	require.Equal(t, []Transfer{{StoreID: seller.ID, Account: "acc_seller", AmountMinor: 100}}, got.TransfersFor(100))

	_, err = accounts.Resolve(ctx, seller.ID, enums.PaymentProviderStripe)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConfiguration))

	_, err = accounts.Resolve(ctx, unlinked.ID, enums.PaymentProviderRazorpay)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConfiguration))

	_, err = accounts.Resolve(ctx, closed.ID, enums.PaymentProviderRazorpay)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = accounts.Resolve(ctx, uuid.New(), enums.PaymentProviderRazorpay)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/kupilikula/rocketshop-market-backend/internal/checkout"
	pkgAuth "github.com/kupilikula/rocketshop-market-backend/pkg/auth"
	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	pkgredis "github.com/kupilikula/rocketshop-market-backend/pkg/redis"
)

type countingCheckout struct {
	calls int
}

func (c *countingCheckout) Checkout(_ context.Context, req checkoutsvc.Request) (checkoutsvc.Result, error) {
	c.calls++
	groups := make([]checkoutsvc.GroupResult, 0, len(req.Stores))
	for _, s := range req.Stores {
		orderID := uuid.New()
		groups = append(groups, checkoutsvc.GroupResult{StoreID: s.StoreID, Status: checkoutsvc.GroupCommitted, OrderID: &orderID})
	}
	return checkoutsvc.Result{Groups: groups}, nil
}

const checkoutBody = `{
	"deliveryAddress": {"street1": "1 MG Road", "city": "Bengaluru", "state": "Karnataka", "postalCode": "560001", "country": "India"},
	"recipient": {"name": "Asha", "phone": "+919900000000"},
	"stores": [{"storeId": "9b2d4c8e-8f4e-4a57-9f6a-1d2f3a4b5c6d", "items": [{"productId": "0c9a7e7e-2f1b-4b8e-9a43-5e6f7a8b9c0d", "quantity": 2}]}]
}`

func testConfig(limit int64) *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT:      config.JWTConfig{Secret: "secret", Issuer: "rocketshop"},
		Checkout: config.CheckoutConfig{RateLimitPerMinute: limit},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, svc checkoutsvc.Service) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	return NewRouter(cfg, logg, Deps{
		Redis:    pkgredis.NewFromClient(raw),
		Checkout: svc,
	})
}

func bearer(t *testing.T, cfg *config.Config, customerID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), customerID, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func postCheckout(router http.Handler, auth, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig(10), &countingCheckout{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestCheckoutRequiresAuth(t *testing.T) {
	svc := &countingCheckout{}
	router := newTestRouter(t, testConfig(10), svc)

	resp := postCheckout(router, "", "key-1")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Zero(t, svc.calls)
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig(10)
	svc := &countingCheckout{}
	router := newTestRouter(t, cfg, svc)

	resp := postCheckout(router, bearer(t, cfg, uuid.New()), "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Zero(t, svc.calls)
}

func TestCheckoutReplaysIdempotentResponse(t *testing.T) {
	cfg := testConfig(10)
	svc := &countingCheckout{}
	router := newTestRouter(t, cfg, svc)
	auth := bearer(t, cfg, uuid.New())

	first := postCheckout(router, auth, "key-1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := postCheckout(router, auth, "key-1")
	require.Equal(t, http.StatusCreated, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, svc.calls)
}

func TestCheckoutRateLimitedPerCustomer(t *testing.T) {
	cfg := testConfig(2)
	svc := &countingCheckout{}
	router := newTestRouter(t, cfg, svc)
	auth := bearer(t, cfg, uuid.New())

	require.Equal(t, http.StatusCreated, postCheckout(router, auth, "key-1").Code)
	require.Equal(t, http.StatusCreated, postCheckout(router, auth, "key-2").Code)

	blocked := postCheckout(router, auth, "key-3")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	require.NotEmpty(t, blocked.Header().Get("Retry-After"))
	require.Equal(t, 2, svc.calls)

	other := postCheckout(router, bearer(t, cfg, uuid.New()), "key-1")
	require.Equal(t, http.StatusCreated, other.Code)
}

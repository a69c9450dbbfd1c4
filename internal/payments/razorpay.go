package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
)

const (
	defaultRazorpayBaseURL       = "https://api.razorpay.com"
	razorpayOrdersPath           = "/v1/orders"
	responseBodyReadLimit  int64 = 1024
	defaultRetryBase             = 200 * time.Millisecond
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	// errOrderUnconfirmed marks a create whose response never arrived; the
	// order may exist on the gateway.
	errOrderUnconfirmed = errors.New("razorpay order outcome unknown")
)

// RazorpayGateway creates Razorpay orders with Route transfers.
type RazorpayGateway struct {
	httpClient  *http.Client
	baseURL     string
	keyID       string
	keySecret   string
	maxAttempts int
	retryBase   time.Duration
	logg        *logger.Logger
}

// RazorpayOption configures optional gateway behavior.
type RazorpayOption func(*RazorpayGateway)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) RazorpayOption {
	return func(g *RazorpayGateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) RazorpayOption {
	return func(g *RazorpayGateway) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			g.baseURL = trimmed
		}
	}
}

// WithRetryBase sets the first backoff step.
func WithRetryBase(d time.Duration) RazorpayOption {
	return func(g *RazorpayGateway) {
		if d > 0 {
			g.retryBase = d
		}
	}
}

func NewRazorpayGateway(cfg config.RazorpayConfig, logg *logger.Logger, opts ...RazorpayOption) (*RazorpayGateway, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	g := &RazorpayGateway{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     defaultRazorpayBaseURL,
		keyID:       keyID,
		keySecret:   keySecret,
		maxAttempts: attempts,
		retryBase:   defaultRetryBase,
		logg:        logg,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		g.baseURL = base
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

func (g *RazorpayGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderRazorpay
}

// KeySecret is the secret used for payment signatures.
func (g *RazorpayGateway) KeySecret() string {
	return g.keySecret
}

type razorpayTransfer struct {
	Account  string            `json:"account"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Notes    map[string]string `json:"notes,omitempty"`
	OnHold   bool              `json:"on_hold"`
}

type razorpayOrderRequest struct {
	Amount    int64              `json:"amount"`
	Currency  string             `json:"currency"`
	Receipt   string             `json:"receipt,omitempty"`
	Notes     map[string]string  `json:"notes,omitempty"`
	Transfers []razorpayTransfer `json:"transfers,omitempty"`
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayOrderList struct {
	Count int             `json:"count"`
	Items []razorpayOrder `json:"items"`
}

// CreateIntent posts a Razorpay order. 429 and 5xx responses are retried up
// to the configured attempts. A transport error is retried only when the
// request carries a receipt, and the retry first looks the receipt up so an
// order created by the lost request is returned instead of duplicated.
func (g *RazorpayGateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if g == nil {
		return Intent{}, pkgerrors.New(pkgerrors.CodeConfiguration, "razorpay gateway not configured")
	}
	if err := req.CheckTransfers(); err != nil {
		return Intent{}, err
	}

	body := razorpayOrderRequest{
		Amount:   req.AmountMinor,
		Currency: string(req.Currency),
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}
	for _, t := range req.Transfers {
		body.Transfers = append(body.Transfers, razorpayTransfer{
			Account:  t.Account,
			Amount:   t.AmountMinor,
			Currency: string(req.Currency),
			Notes:    map[string]string{"store_id": t.StoreID.String()},
		})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Intent{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal razorpay order")
	}

	backoff := retry.WithMaxRetries(uint64(g.maxAttempts-1), retry.NewExponential(g.retryBase))
	var order razorpayOrder
	attempt := 0
	unconfirmed := false
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		callErr := func() error {
			if unconfirmed {
				existing, found, err := g.findOrderByReceipt(ctx, req.Receipt)
				if err != nil {
					return retry.RetryableError(err)
				}
				if found {
					order = existing
					return nil
				}
			}
			var err error
			order, err = g.postOrder(ctx, payload, req.Receipt != "")
			if errors.Is(err, errOrderUnconfirmed) {
				unconfirmed = true
			}
			return err
		}()
		if callErr != nil && g.logg != nil {
			logCtx := g.logg.WithFields(ctx, map[string]any{"attempt": attempt, "receipt": req.Receipt})
			g.logg.Warn(g.logg.WithField(logCtx, "error", callErr.Error()), "razorpay order request failed")
		}
		return callErr
	})
	if err != nil {
		return Intent{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "payment gateway request failed")
	}
	if strings.TrimSpace(order.ID) == "" {
		return Intent{}, pkgerrors.New(pkgerrors.CodeUpstream, "payment gateway returned no order id")
	}

	return Intent{
		ID:          order.ID,
		Provider:    enums.PaymentProviderRazorpay,
		Status:      order.Status,
		AmountMinor: order.Amount,
		Currency:    enums.Currency(order.Currency),
		KeyID:       g.keyID,
	}, nil
}

// postOrder sends one create request. With recoverable set, a transport
// error is returned as retryable and wraps errOrderUnconfirmed.
func (g *RazorpayGateway) postOrder(ctx context.Context, payload []byte, recoverable bool) (razorpayOrder, error) {
	endpoint := strings.TrimRight(g.baseURL, "/") + razorpayOrdersPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return razorpayOrder{}, fmt.Errorf("build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var order razorpayOrder
	if err := g.do(httpReq, &order); err != nil {
		var statusErr *razorpayStatusError
		if errors.As(err, &statusErr) {
			if statusErr.retryable() {
				return razorpayOrder{}, retry.RetryableError(err)
			}
			return razorpayOrder{}, err
		}
		if recoverable {
			return razorpayOrder{}, retry.RetryableError(fmt.Errorf("%w: %w", errOrderUnconfirmed, err))
		}
		return razorpayOrder{}, err
	}
	return order, nil
}

// findOrderByReceipt returns the order created for receipt, if any.
func (g *RazorpayGateway) findOrderByReceipt(ctx context.Context, receipt string) (razorpayOrder, bool, error) {
	endpoint := strings.TrimRight(g.baseURL, "/") + razorpayOrdersPath + "?" + url.Values{"receipt": {receipt}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return razorpayOrder{}, false, fmt.Errorf("build order lookup: %w", err)
	}

	var list razorpayOrderList
	if err := g.do(httpReq, &list); err != nil {
		return razorpayOrder{}, false, fmt.Errorf("lookup order by receipt: %w", err)
	}
	for _, o := range list.Items {
		if o.Receipt == receipt && strings.TrimSpace(o.ID) != "" {
			return o, true, nil
		}
	}
	return razorpayOrder{}, false, nil
}

type razorpayStatusError struct {
	status int
	body   string
}

func (e *razorpayStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// retryable reports whether the gateway refused the request without acting on it.
func (e *razorpayStatusError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= http.StatusInternalServerError
}

func (g *RazorpayGateway) do(httpReq *http.Request, out any) error {
	httpReq.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute %s %s: %w", httpReq.Method, httpReq.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return &razorpayStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", httpReq.URL.Path, err)
	}
	return nil
}

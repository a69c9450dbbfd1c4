package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/internal/billing"
	"github.com/kupilikula/rocketshop-market-backend/internal/catalog"
	"github.com/kupilikula/rocketshop-market-backend/internal/checkout/helpers"
	"github.com/kupilikula/rocketshop-market-backend/internal/orders"
	"github.com/kupilikula/rocketshop-market-backend/internal/payments"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/metrics"
	"github.com/kupilikula/rocketshop-market-backend/pkg/outbox"
	"github.com/kupilikula/rocketshop-market-backend/pkg/outbox/payloads"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type billingComputer interface {
	Compute(ctx context.Context, storeID uuid.UUID, lines []pricing.CartLine, codes []string, addr types.Address) (billing.Breakdown, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service executes checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, req Request) (Result, error)
}

// Deps are the collaborators of the checkout service.
type Deps struct {
	Tx       txRunner
	Catalog  *catalog.Repository
	Billing  billingComputer
	Orders   orders.Repository
	Accounts *payments.AccountsRepository
	Gateway  payments.Gateway
	Outbox   outboxPublisher
	Logger   *logger.Logger
	Metrics  *metrics.CheckoutMetrics
	Config   config.CheckoutConfig
}

type service struct {
	tx       txRunner
	catalog  *catalog.Repository
	billing  billingComputer
	orders   orders.Repository
	accounts *payments.AccountsRepository
	gateway  payments.Gateway
	outbox   outboxPublisher
	logg     *logger.Logger
	metrics  *metrics.CheckoutMetrics
	cfg      config.CheckoutConfig
	currency enums.Currency
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if deps.Billing == nil {
		return nil, fmt.Errorf("billing aggregator required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Accounts == nil {
		return nil, fmt.Errorf("payment accounts repository required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	currency, err := enums.ParseCurrency(deps.Config.Currency)
	if err != nil {
		return nil, err
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:       deps.Tx,
		catalog:  deps.Catalog,
		billing:  deps.Billing,
		orders:   deps.Orders,
		accounts: deps.Accounts,
		gateway:  deps.Gateway,
		outbox:   deps.Outbox,
		logg:     logg,
		metrics:  deps.Metrics,
		cfg:      deps.Config,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Checkout runs every store group as its own transaction. A failing group
// never rolls back a sibling that already committed.
func (s *service) Checkout(ctx context.Context, req Request) (Result, error) {
	if req.CustomerID == uuid.Nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}
	if len(req.Stores) == 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := helpers.ValidateDelivery(req.DeliveryAddress, req.Recipient); err != nil {
		return Result{}, err
	}
	seen := make(map[uuid.UUID]struct{}, len(req.Stores))
	for _, group := range req.Stores {
		if _, dup := seen[group.StoreID]; dup {
			return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "store listed more than once").
				WithDetails(map[string]any{"storeId": group.StoreID})
		}
		seen[group.StoreID] = struct{}{}
	}

	ctx = s.logg.WithCustomerID(ctx, req.CustomerID.String())
	results := make([]GroupResult, len(req.Stores))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.cfg.MaxConcurrentGroups
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, group := range req.Stores {
		g.Go(func() error {
			results[i] = s.runGroup(gctx, req, group)
			return nil
		})
	}
	_ = g.Wait()

	return Result{Groups: results}, nil
}

func (s *service) runGroup(ctx context.Context, req Request, group StoreRequest) GroupResult {
	started := time.Now()
	items := helpers.MergeItems(group.Items)
	fingerprint := Fingerprint(req.CustomerID, group.StoreID, items, req.DeliveryAddress, group.offerIDs())

	ctx = s.logg.WithStoreID(ctx, group.StoreID.String())
	ctx = s.logg.WithField(ctx, "fingerprint", fingerprint)
	s.logg.Info(ctx, "checkout.group.start")

	res, err := s.commitGroup(ctx, req, group, items, fingerprint)
	if err != nil {
		outcome := string(pkgerrors.CodeOf(err))
		s.metrics.ObserveGroup(outcome, time.Since(started))
		failCtx := s.logg.WithField(ctx, "code", outcome)
		if pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).HTTPStatus >= 500 {
			s.logg.Error(failCtx, "checkout.group.failed", err)
		} else {
			s.logg.Warn(s.logg.WithField(failCtx, "error", err.Error()), "checkout.group.failed")
		}
		return failed(group.StoreID, fingerprint, err)
	}

	s.metrics.ObserveGroup(string(GroupCommitted), time.Since(started))
	s.logg.Info(s.logg.WithOrderID(ctx, res.OrderID.String()), "checkout.group.committed")
	return res
}

func (s *service) commitGroup(ctx context.Context, req Request, group StoreRequest, items []catalog.Item, fingerprint string) (GroupResult, error) {
	if err := helpers.ValidateItems(group.StoreID, items); err != nil {
		return GroupResult{}, err
	}

	now := s.now()
	window := s.cfg.Window()
	prior, err := s.orders.FindRecentAttempt(ctx, req.CustomerID, fingerprint, now.Add(-window))
	if err != nil {
		return GroupResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check prior attempts")
	}
	if prior != nil && prior.Blocking() {
		return GroupResult{}, duplicateCheckout(fingerprint, prior.OrderID)
	}

	lines, err := s.catalog.Lines(ctx, group.StoreID, items)
	if err != nil {
		return GroupResult{}, err
	}
	breakdown, err := s.billing.Compute(ctx, group.StoreID, lines, group.codes(), req.DeliveryAddress)
	if err != nil {
		return GroupResult{}, err
	}
	bill := breakdown.Result
	if !bill.Total.IsPositive() {
		return GroupResult{}, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive").
			WithDetails(map[string]any{"total": bill.Total})
	}
	if s.cfg.VerifyClientBilling && group.Billing != nil && !billing.Equal(group.Billing.asResult(), bill) {
		return GroupResult{}, pkgerrors.New(pkgerrors.CodeConflict, "billing mismatch").
			WithDetails(map[string]any{"expected": bill, "received": group.Billing})
	}

	settlement, err := s.accounts.Resolve(ctx, group.StoreID, s.gateway.Provider())
	if err != nil {
		return GroupResult{}, err
	}

	var (
		order  *models.Order
		intent payments.Intent
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.catalog.WithTx(tx).LockAndReserve(ctx, items); err != nil {
			return err
		}

		ordersRepo := s.orders.WithTx(tx)
		order = s.buildOrder(req, group.StoreID, fingerprint, breakdown)
		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}

		claimed, err := ordersRepo.ClaimAttempt(ctx, &models.CheckoutAttempt{
			CustomerID:  req.CustomerID,
			Fingerprint: fingerprint,
			StoreID:     group.StoreID,
			OrderID:     order.ID,
			AttemptedAt: now,
		}, now.Add(-window))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record checkout attempt")
		}
		if !claimed {
			winner, err := ordersRepo.FindRecentAttempt(ctx, req.CustomerID, fingerprint, now.Add(-window))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check prior attempts")
			}
			priorOrderID := uuid.Nil
			if winner != nil {
				priorOrderID = winner.OrderID
			}
			return duplicateCheckout(fingerprint, priorOrderID)
		}

		amount := pricing.ToMinorUnits(bill.Total)
		intentReq := payments.IntentRequest{
			Receipt:     order.ID.String(),
			AmountMinor: amount,
			Currency:    s.currency,
			Transfers:   settlement.TransfersFor(amount),
			Notes: map[string]string{
				"order_id":    order.ID.String(),
				"store_id":    group.StoreID.String(),
				"customer_id": req.CustomerID.String(),
			},
		}
		if err := intentReq.CheckTransfers(); err != nil {
			return err
		}

		intent, err = s.createIntent(ctx, intentReq)
		if err != nil {
			return err
		}
		if err := ordersRepo.AttachPaymentIntent(ctx, order.ID, intent.Provider, intent.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment intent")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CustomerID: req.CustomerID, StoreID: &group.StoreID},
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:         order.ID,
				CustomerID:      req.CustomerID,
				StoreID:         group.StoreID,
				Total:           bill.Total.StringFixed(2),
				Currency:        string(s.currency),
				ItemCount:       len(order.Items),
				PaymentIntentID: intent.ID,
				RecipientName:   req.Recipient.Name,
				CreatedAt:       now,
			},
		})
	})
	if err != nil {
		return GroupResult{}, err
	}

	orderID := order.ID
	return GroupResult{
		StoreID:       group.StoreID,
		Status:        GroupCommitted,
		OrderID:       &orderID,
		Fingerprint:   fingerprint,
		Billing:       &bill,
		PaymentIntent: &intent,
	}, nil
}

func (s *service) createIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error) {
	callCtx := ctx
	if s.cfg.GatewayCallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.GatewayCallTimeout)
		defer cancel()
	}

	started := time.Now()
	intent, err := s.gateway.CreateIntent(callCtx, req)
	s.metrics.ObserveGateway(string(s.gateway.Provider()), err == nil && intent.ID != "", time.Since(started))
	if err != nil {
		if pkgerrors.As(err) != nil {
			return payments.Intent{}, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return payments.Intent{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "payment gateway timed out")
		}
		return payments.Intent{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "payment gateway request failed")
	}
	if intent.ID == "" {
		return payments.Intent{}, pkgerrors.New(pkgerrors.CodeUpstream, "payment gateway returned no intent id")
	}
	if intent.Provider == "" {
		intent.Provider = s.gateway.Provider()
	}
	if intent.AmountMinor == 0 {
		intent.AmountMinor = req.AmountMinor
	}
	if intent.Currency == "" {
		intent.Currency = req.Currency
	}
	return intent, nil
}

func (s *service) buildOrder(req Request, storeID uuid.UUID, fingerprint string, breakdown billing.Breakdown) *models.Order {
	bill := breakdown.Result
	items := make([]models.OrderItem, 0, len(breakdown.Lines))
	for _, state := range breakdown.Lines {
		items = append(items, models.OrderItem{
			ProductID:      state.Line.ProductID,
			Quantity:       state.Line.Quantity,
			UnitPrice:      state.Line.UnitPrice,
			TaxRate:        state.Line.TaxRate,
			TaxInclusive:   state.Line.TaxInclusive,
			DiscountAmount: pricing.Round2(state.DiscountAccumulated),
		})
	}
	return &models.Order{
		CustomerID:          req.CustomerID,
		StoreID:             storeID,
		Subtotal:            bill.Subtotal,
		Shipping:            bill.Shipping,
		Discount:            bill.Discount,
		GST:                 bill.GST,
		Total:               bill.Total,
		Currency:            s.currency,
		DeliveryAddress:     req.DeliveryAddress,
		Recipient:           req.Recipient,
		AppliedOffers:       pricing.PersistedOffers(bill.AppliedOffers),
		CheckoutFingerprint: fingerprint,
		Items:               items,
	}
}

func duplicateCheckout(fingerprint string, priorOrderID uuid.UUID) error {
	details := map[string]any{"fingerprint": fingerprint}
	if priorOrderID != uuid.Nil {
		details["priorOrderId"] = priorOrderID
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "duplicate checkout in progress").WithDetails(details)
}

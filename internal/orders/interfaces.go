package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
)

// Repository persists orders and the checkout attempts that produced them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AttachPaymentIntent(ctx context.Context, orderID uuid.UUID, provider enums.PaymentProvider, intentID string) error
	FindRecentAttempt(ctx context.Context, customerID uuid.UUID, fingerprint string, since time.Time) (*PriorAttempt, error)
	ClaimAttempt(ctx context.Context, attempt *models.CheckoutAttempt, staleBefore time.Time) (bool, error)
	PruneAttempts(ctx context.Context, before time.Time, limit int) (int64, error)
}

// PriorAttempt is an earlier checkout with the same fingerprint and the
// current status of the order it created.
type PriorAttempt struct {
	OrderID     uuid.UUID         `gorm:"column:order_id"`
	AttemptedAt time.Time         `gorm:"column:attempted_at"`
	OrderStatus enums.OrderStatus `gorm:"column:status"`
}

// Blocking reports whether the prior attempt still counts as in flight.
func (p PriorAttempt) Blocking() bool {
	return !p.OrderStatus.IsTerminalFailure()
}

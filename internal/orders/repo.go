package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order, its items and the opening history row.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	db := r.db.WithContext(ctx)
	if order.Status == "" {
		order.Status = enums.OrderStatusCreated
	}
	if err := db.Create(order).Error; err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	history := models.OrderStatusHistory{OrderID: order.ID, Status: order.Status}
	if err := db.Create(&history).Error; err != nil {
		return fmt.Errorf("insert order history: %w", err)
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) AttachPaymentIntent(ctx context.Context, orderID uuid.UUID, provider enums.PaymentProvider, intentID string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"payment_provider":  provider,
			"payment_intent_id": intentID,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("attach payment intent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindRecentAttempt returns the attempt recorded at or after since, or nil.
func (r *repository) FindRecentAttempt(ctx context.Context, customerID uuid.UUID, fingerprint string, since time.Time) (*PriorAttempt, error) {
	var prior PriorAttempt
	err := r.db.WithContext(ctx).
		Table("checkout_attempts AS ca").
		Select("ca.order_id, ca.attempted_at, o.status").
		Joins("JOIN orders o ON o.id = ca.order_id").
		Where("ca.customer_id = ? AND ca.fingerprint = ? AND ca.attempted_at >= ?", customerID, fingerprint, since.UTC()).
		Take(&prior).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find checkout attempt: %w", err)
	}
	return &prior, nil
}

// ClaimAttempt records the attempt unless a live one already holds the
// fingerprint. An existing row is taken over only when it is older than
// staleBefore or its order ended canceled or failed. It returns false when
// another attempt won.
func (r *repository) ClaimAttempt(ctx context.Context, attempt *models.CheckoutAttempt, staleBefore time.Time) (bool, error) {
	attempt.AttemptedAt = attempt.AttemptedAt.UTC()
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}, {Name: "fingerprint"}},
			DoUpdates: clause.AssignmentColumns([]string{"store_id", "order_id", "attempted_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{
					SQL:  "checkout_attempts.attempted_at < ? OR checkout_attempts.order_id IN (SELECT id FROM orders WHERE status IN ?)",
					Vars: []any{staleBefore.UTC(), enums.TerminalFailureOrderStatuses},
				},
			}},
		}).
		Create(attempt)
	if res.Error != nil {
		return false, fmt.Errorf("record checkout attempt: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// PruneAttempts deletes up to limit attempts recorded before the cutoff.
func (r *repository) PruneAttempts(ctx context.Context, before time.Time, limit int) (int64, error) {
	sub := r.db.WithContext(ctx).
		Model(&models.CheckoutAttempt{}).
		Select("id").
		Where("attempted_at < ?", before.UTC()).
		Order("attempted_at").
		Limit(limit)
	res := r.db.WithContext(ctx).Where("id IN (?)", sub).Delete(&models.CheckoutAttempt{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune checkout attempts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

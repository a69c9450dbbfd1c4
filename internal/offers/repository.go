package offers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/internal/repo"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
)

// Repository reads store offers.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// ActiveOffers returns the store's active offers whose window contains at,
// oldest first.
func (r *Repository) ActiveOffers(ctx context.Context, storeID uuid.UUID, at time.Time) ([]pricing.Offer, error) {
	var rows []models.Offer
	if err := r.live(ctx, storeID, at.UTC()).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offers")
	}
	out := make([]pricing.Offer, 0, len(rows))
	for _, row := range rows {
		out = append(out, toOffer(row))
	}
	return out, nil
}

// FindByCode returns the live code-gated offer matching code exactly.
func (r *Repository) FindByCode(ctx context.Context, storeID uuid.UUID, code string, at time.Time) (pricing.Offer, error) {
	var row models.Offer
	err := r.live(ctx, storeID, at.UTC()).
		Where("requires_code = ? AND code = ?", true, strings.TrimSpace(code)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pricing.Offer{}, pkgerrors.New(pkgerrors.CodeNotFound, "invalid or expired offer code")
	}
	if err != nil {
		return pricing.Offer{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	return toOffer(row), nil
}

func (r *Repository) live(ctx context.Context, storeID uuid.UUID, at time.Time) *gorm.DB {
	return r.DB(ctx).
		Model(&models.Offer{}).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Where("valid_from <= ? AND valid_until > ?", at, at)
}

func toOffer(row models.Offer) pricing.Offer {
	offer := pricing.Offer{
		ID:           row.ID,
		StoreID:      row.StoreID,
		Name:         row.Name,
		Type:         row.OfferType,
		Scope:        row.Scope,
		RequiresCode: row.RequiresCode,
		ValidFrom:    row.ValidFrom.UTC(),
		ValidUntil:   row.ValidUntil.UTC(),
		Params:       row.DiscountParams,
	}
	if row.Code != nil {
		offer.Code = *row.Code
	}
	if row.MinPurchaseAmount.Valid {
		offer.MinPurchaseAmount = row.MinPurchaseAmount.Decimal
	}
	if row.MinItemCount != nil {
		offer.MinItemCount = *row.MinItemCount
	}
	return offer
}

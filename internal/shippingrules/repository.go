package shippingrules

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/internal/repo"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
)

// Repository resolves product shipping-rule assignments.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// RulesForProducts maps each product to its assigned rule. Assignments to
// inactive rules or to another store's rules are dropped.
func (r *Repository) RulesForProducts(ctx context.Context, storeID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]pricing.ShippingRule, error) {
	out := make(map[uuid.UUID]pricing.ShippingRule, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var links []models.ProductShippingRule
	if err := r.DB(ctx).Where("product_id IN ?", productIDs).Find(&links).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping assignments")
	}
	if len(links) == 0 {
		return out, nil
	}

	ruleIDs := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		ruleIDs = append(ruleIDs, link.ShippingRuleID)
	}

	var rules []models.ShippingRule
	if err := r.DB(ctx).
		Where("id IN ? AND store_id = ? AND is_active = ?", ruleIDs, storeID, true).
		Find(&rules).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping rules")
	}
	byID := make(map[uuid.UUID]pricing.ShippingRule, len(rules))
	for _, rule := range rules {
		byID[rule.ID] = pricing.ShippingRule{
			ID:                   rule.ID,
			StoreID:              rule.StoreID,
			GroupingEnabled:      rule.GroupingEnabled,
			InternationalAllowed: rule.InternationalAllowed,
			Conditions:           rule.Conditions,
		}
	}

	for _, link := range links {
		if rule, ok := byID[link.ShippingRuleID]; ok {
			out[link.ProductID] = rule
		}
	}
	return out, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kupilikula/rocketshop-market-backend/internal/eligibility"
	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
	"github.com/kupilikula/rocketshop-market-backend/internal/repo"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
)

// Item is a requested product and quantity.
type Item struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// Repository reads products and holds stock for open orders.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// Lines builds the priced cart lines of one store group. Every product must
// exist, be active and belong to storeID.
func (r *Repository) Lines(ctx context.Context, storeID uuid.UUID, items []Item) ([]pricing.CartLine, error) {
	if len(items) == 0 {
		return nil, nil
	}
	ids := productIDs(items)

	products, err := repo.FindIn[models.Product](ctx, r.Base, "id", ids, withTags)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	collections, err := r.collectionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.CartLine, 0, len(items))
	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok || !p.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"productId": item.ProductID})
		}
		if p.StoreID != storeID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not belong to store").
				WithDetails(map[string]any{"productId": item.ProductID, "storeId": storeID})
		}
		lines = append(lines, pricing.CartLine{
			ProductID:     p.ID,
			StoreID:       p.StoreID,
			Quantity:      item.Quantity,
			UnitPrice:     p.Price,
			TaxRate:       p.TaxRate,
			TaxInclusive:  p.TaxInclusive,
			Tags:          tagNames(p.Tags),
			CollectionIDs: collections[p.ID],
		})
	}
	return lines, nil
}

// ProductAttributes satisfies eligibility.AttributeSource.
func (r *Repository) ProductAttributes(ctx context.Context, productID uuid.UUID) (eligibility.Attributes, bool, error) {
	var product models.Product
	err := r.DB(ctx).Preload("Tags").First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return eligibility.Attributes{}, false, nil
	}
	if err != nil {
		return eligibility.Attributes{}, false, fmt.Errorf("load product %s: %w", productID, err)
	}

	collections, err := r.collectionsFor(ctx, []uuid.UUID{productID})
	if err != nil {
		return eligibility.Attributes{}, false, err
	}
	return eligibility.Attributes{
		Tags:          tagNames(product.Tags),
		CollectionIDs: collections[productID],
	}, true, nil
}

// LockAndReserve locks the product rows in id order, checks availability
// under the lock and moves the quantities into reserved stock. Call it on a
// repository bound to the checkout transaction.
func (r *Repository) LockAndReserve(ctx context.Context, items []Item) error {
	wanted := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		wanted[item.ProductID] += item.Quantity
	}
	ids := productIDs(items)

	var products []models.Product
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&products).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock products")
	}
	if len(products) != len(ids) {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	for _, p := range products {
		if available := p.Available(); wanted[p.ID] > available {
			return pkgerrors.New(pkgerrors.CodeStock, "insufficient stock").
				WithDetails(map[string]any{"productId": p.ID, "available": max(available, 0)})
		}
	}

	for _, p := range products {
		if err := r.DB(ctx).
			Model(&models.Product{}).
			Where("id = ?", p.ID).
			Update("reserved_stock", gorm.Expr("reserved_stock + ?", wanted[p.ID])).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
		}
	}
	return nil
}

// Availability is the answer to a single cart item check.
type Availability struct {
	Valid     bool   `json:"valid"`
	Available int    `json:"available"`
	Message   string `json:"message,omitempty"`
}

// CheckItem compares quantity against unreserved stock without locking.
func (r *Repository) CheckItem(ctx context.Context, productID uuid.UUID, quantity int) (Availability, error) {
	var product models.Product
	err := r.DB(ctx).First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Availability{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return Availability{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	available := max(product.Available(), 0)
	if !product.IsActive {
		return Availability{Available: 0, Message: "Product is no longer available."}, nil
	}
	if quantity > available {
		return Availability{Available: available, Message: fmt.Sprintf("Only %d units are available.", available)}, nil
	}
	return Availability{Valid: true, Available: available}, nil
}

func (r *Repository) collectionsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	rows, err := repo.FindIn[models.CollectionProduct](ctx, r.Base, "product_id", ids, func(q *gorm.DB) *gorm.DB {
		return q.Order("collection_id")
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collections")
	}
	out := make(map[uuid.UUID][]uuid.UUID, len(ids))
	for _, row := range rows {
		out[row.ProductID] = append(out[row.ProductID], row.CollectionID)
	}
	return out, nil
}

func withTags(q *gorm.DB) *gorm.DB {
	return q.Preload("Tags")
}

func productIDs(items []Item) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return slices.Compact(ids)
}

func tagNames(tags []models.ProductTag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Tag)
	}
	slices.Sort(out)
	return out
}

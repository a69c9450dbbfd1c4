package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/pkg/db/dbtest"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
)

func seedProduct(t *testing.T, db *gorm.DB, storeID uuid.UUID, price string, stock, reserved int, tags ...string) models.Product {
	t.Helper()
	p := models.Product{
		StoreID:       storeID,
		Name:          "product",
		Price:         decimal.RequireFromString(price),
		Stock:         stock,
		ReservedStock: reserved,
		TaxRate:       decimal.NewFromInt(18),
		IsActive:      true,
	}
	for _, tag := range tags {
		p.Tags = append(p.Tags, models.ProductTag{Tag: tag})
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestLines_SnapshotsCatalog(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	storeID := uuid.New()
	p := seedProduct(t, db, storeID, "199.99", 10, 0, "summer", "cotton")
	collectionID := uuid.New()
	require.NoError(t, db.Create(&models.CollectionProduct{CollectionID: collectionID, ProductID: p.ID}).Error)

	lines, err := repo.Lines(context.Background(), storeID, []Item{{ProductID: p.ID, Quantity: 3}})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	line := lines[0]
	require.Equal(t, 3, line.Quantity)
	require.True(t, line.UnitPrice.Equal(decimal.RequireFromString("199.99")))
	require.True(t, line.TaxRate.Equal(decimal.NewFromInt(18)))
	require.Equal(t, []string{"cotton", "summer"}, line.Tags)
	require.Equal(t, []uuid.UUID{collectionID}, line.CollectionIDs)
}

func TestLines_RejectsForeignOrMissingProducts(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	p := seedProduct(t, db, uuid.New(), "10", 1, 0)

	_, err := repo.Lines(context.Background(), uuid.New(), []Item{{ProductID: p.ID, Quantity: 1}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = repo.Lines(context.Background(), p.StoreID, []Item{{ProductID: uuid.New(), Quantity: 1}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestProductAttributes(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	p := seedProduct(t, db, uuid.New(), "10", 1, 0, "gift")

	attrs, found, err := repo.ProductAttributes(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []string{"gift"}, attrs.Tags)

	_, found, err = repo.ProductAttributes(context.Background(), uuid.New())
	require.NoError(t, err)
	require.False(t, found)
}

func TestLockAndReserve(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	storeID := uuid.New()
	a := seedProduct(t, db, storeID, "10", 5, 2)
	b := seedProduct(t, db, storeID, "20", 4, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.WithTx(tx).LockAndReserve(context.Background(), []Item{
			{ProductID: a.ID, Quantity: 3},
			{ProductID: b.ID, Quantity: 1},
		})
	})
	require.NoError(t, err)

	var reloadedA, reloadedB models.Product
	require.NoError(t, db.First(&reloadedA, "id = ?", a.ID).Error)
	require.Equal(t, 5, reloadedA.ReservedStock)
	require.NoError(t, db.First(&reloadedB, "id = ?", b.ID).Error)
	require.Equal(t, 1, reloadedB.ReservedStock)
}

func TestLockAndReserve_InsufficientStockLeavesRowsUntouched(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	storeID := uuid.New()
	a := seedProduct(t, db, storeID, "10", 5, 0)
	b := seedProduct(t, db, storeID, "20", 3, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.WithTx(tx).LockAndReserve(context.Background(), []Item{
			{ProductID: a.ID, Quantity: 1},
			{ProductID: b.ID, Quantity: 2},
		})
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStock))
	details := pkgerrors.As(err).Details().(map[string]any)
	require.Equal(t, b.ID, details["productId"])
	require.Equal(t, 1, details["available"])

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", a.ID).Error)
	require.Zero(t, reloaded.ReservedStock)
}

func TestLockAndReserve_SumsRepeatedProducts(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	p := seedProduct(t, db, uuid.New(), "10", 3, 0)

	err := repo.LockAndReserve(context.Background(), []Item{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: p.ID, Quantity: 2},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStock))
}

func TestCheckItem(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	p := seedProduct(t, db, uuid.New(), "10", 5, 3)

	got, err := repo.CheckItem(context.Background(), p.ID, 2)
	require.NoError(t, err)
	require.True(t, got.Valid)
	require.Equal(t, 2, got.Available)

	got, err = repo.CheckItem(context.Background(), p.ID, 3)
	require.NoError(t, err)
	require.False(t, got.Valid)
	require.Equal(t, "Only 2 units are available.", got.Message)

	_, err = repo.CheckItem(context.Background(), uuid.New(), 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

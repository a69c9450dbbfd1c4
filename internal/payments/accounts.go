package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/internal/repo"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
)

// Settlement says where a store's money goes. LinkedAccountID is empty for
// platform-owned stores.
type Settlement struct {
	StoreID         uuid.UUID
	PlatformOwned   bool
	LinkedAccountID string
}

// TransfersFor returns the transfer list for an intent of amountMinor paid to
// this store: none for the platform, the whole amount otherwise.
func (s Settlement) TransfersFor(amountMinor int64) []Transfer {
	if s.PlatformOwned {
		return nil
	}
	return []Transfer{{StoreID: s.StoreID, Account: s.LinkedAccountID, AmountMinor: amountMinor}}
}

// AccountsRepository reads store settlement configuration.
type AccountsRepository struct {
	repo.Base
}

func NewAccountsRepository(db *gorm.DB) *AccountsRepository {
	return &AccountsRepository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *AccountsRepository) WithTx(tx *gorm.DB) *AccountsRepository {
	return &AccountsRepository{Base: r.Bind(tx)}
}

// Resolve loads the store and, for third-party stores, its active account at
// provider. A missing link is a configuration error.
func (r *AccountsRepository) Resolve(ctx context.Context, storeID uuid.UUID, provider enums.PaymentProvider) (Settlement, error) {
	var store models.Store
	err := r.DB(ctx).First(&store, "id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Settlement{}, pkgerrors.New(pkgerrors.CodeValidation, "store not found").
			WithDetails(map[string]any{"storeId": storeID})
	}
	if err != nil {
		return Settlement{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if !store.IsActive {
		return Settlement{}, pkgerrors.New(pkgerrors.CodeValidation, "store is not accepting orders").
			WithDetails(map[string]any{"storeId": storeID})
	}
	if store.IsPlatformOwned {
		return Settlement{StoreID: storeID, PlatformOwned: true}, nil
	}

	var account models.StorePaymentAccount
	err = r.DB(ctx).
		Where("store_id = ? AND provider = ? AND is_active = ?", storeID, provider, true).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Settlement{}, pkgerrors.New(pkgerrors.CodeConfiguration, "store has no linked payment account").
			WithDetails(map[string]any{"storeId": storeID, "provider": provider})
	}
	if err != nil {
		return Settlement{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment account")
	}
	if account.LinkedAccountID == "" {
		return Settlement{}, pkgerrors.New(pkgerrors.CodeConfiguration, "store payment account is incomplete").
			WithDetails(map[string]any{"storeId": storeID})
	}
	return Settlement{StoreID: storeID, LinkedAccountID: account.LinkedAccountID}, nil
}

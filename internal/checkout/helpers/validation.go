package helpers

import (
	"github.com/google/uuid"

	"github.com/kupilikula/rocketshop-market-backend/internal/catalog"
	pkgerrors "github.com/kupilikula/rocketshop-market-backend/pkg/errors"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

// ValidateDelivery requires a complete address and a recipient.
func ValidateDelivery(addr types.Address, recipient types.Recipient) error {
	missing := []string{}
	if addr.IsZero() {
		missing = append(missing, "deliveryAddress")
	} else if addr.Normalized().Country == "" {
		missing = append(missing, "deliveryAddress.country")
	}
	if recipient.Name == "" {
		missing = append(missing, "recipient.name")
	}
	if recipient.Phone == "" {
		missing = append(missing, "recipient.phone")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery details are incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

// ValidateItems rejects an empty group and non-positive quantities.
func ValidateItems(storeID uuid.UUID, items []catalog.Item) error {
	if storeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items").
			WithDetails(map[string]any{"storeId": storeID})
	}
	for _, item := range items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart item").
				WithDetails(map[string]any{"productId": item.ProductID, "quantity": item.Quantity})
		}
	}
	return nil
}

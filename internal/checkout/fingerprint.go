package checkout

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/kupilikula/rocketshop-market-backend/internal/catalog"
	"github.com/kupilikula/rocketshop-market-backend/internal/checkout/helpers"
	"github.com/kupilikula/rocketshop-market-backend/pkg/types"
)

const fingerprintVersion = 1

type fingerprintItem struct {
	ProductID string `json:"p"`
	Quantity  int    `json:"q"`
}

// Struct field order fixes the JSON key order, so equal inputs hash equally.
type fingerprintInput struct {
	Version    int               `json:"v"`
	CustomerID string            `json:"customerId"`
	StoreID    string            `json:"storeId"`
	Items      []fingerprintItem `json:"items"`
	Address    types.Address     `json:"address"`
	OfferIDs   []string          `json:"offerIds"`
}

// Fingerprint identifies a checkout attempt independent of item order,
// repeated lines, address casing and offer order.
func Fingerprint(customerID, storeID uuid.UUID, items []catalog.Item, addr types.Address, offerIDs []uuid.UUID) string {
	merged := helpers.MergeItems(items)
	in := fingerprintInput{
		Version:    fingerprintVersion,
		CustomerID: customerID.String(),
		StoreID:    storeID.String(),
		Items:      make([]fingerprintItem, 0, len(merged)),
		Address:    addr.Normalized(),
		OfferIDs:   []string{},
	}
	for _, item := range merged {
		in.Items = append(in.Items, fingerprintItem{ProductID: item.ProductID.String(), Quantity: item.Quantity})
	}
	for _, id := range helpers.SortedIDs(offerIDs) {
		in.OfferIDs = append(in.OfferIDs, id.String())
	}

	// marshal of plain strings and ints cannot fail
	raw, _ := json.Marshal(in)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

package helpers

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kupilikula/rocketshop-market-backend/internal/catalog"
)

// MergeItems folds repeated products into one item and returns them ordered
// by product id.
func MergeItems(items []catalog.Item) []catalog.Item {
	totals := make(map[uuid.UUID]int, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, seen := totals[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		totals[item.ProductID] += item.Quantity
	}
	slices.SortFunc(order, compareIDs)

	merged := make([]catalog.Item, 0, len(order))
	for _, id := range order {
		merged = append(merged, catalog.Item{ProductID: id, Quantity: totals[id]})
	}
	return merged
}

// SortedIDs returns a sorted copy of ids without duplicates or nil ids.
func SortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, compareIDs)
	return slices.Compact(out)
}

func compareIDs(a, b uuid.UUID) int {
	return strings.Compare(a.String(), b.String())
}

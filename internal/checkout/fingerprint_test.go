package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kupilikula/rocketshop-market-backend/internal/catalog"
)

func TestFingerprintIsStable(t *testing.T) {
	customerID, storeID := uuid.New(), uuid.New()
	a, b := uuid.New(), uuid.New()
	offerA, offerB := uuid.New(), uuid.New()

	base := Fingerprint(customerID, storeID,
		[]catalog.Item{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 2}},
		address, []uuid.UUID{offerA, offerB})
	require.Len(t, base, 64)

	reordered := Fingerprint(customerID, storeID,
		[]catalog.Item{{ProductID: b, Quantity: 2}, {ProductID: a, Quantity: 1}},
		address, []uuid.UUID{offerB, offerA})
	require.Equal(t, base, reordered)

	shouted := address
	shouted.City = "  BENGALURU "
	require.Equal(t, base, Fingerprint(customerID, storeID,
		[]catalog.Item{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 2}},
		shouted, []uuid.UUID{offerA, offerB}))
}

func TestFingerprintChangesWithCart(t *testing.T) {
	customerID, storeID := uuid.New(), uuid.New()
	a := uuid.New()
	base := Fingerprint(customerID, storeID, []catalog.Item{{ProductID: a, Quantity: 1}}, address, nil)

	require.NotEqual(t, base, Fingerprint(customerID, storeID, []catalog.Item{{ProductID: a, Quantity: 2}}, address, nil))
	require.NotEqual(t, base, Fingerprint(uuid.New(), storeID, []catalog.Item{{ProductID: a, Quantity: 1}}, address, nil))
	require.NotEqual(t, base, Fingerprint(customerID, storeID, []catalog.Item{{ProductID: a, Quantity: 1}}, address, []uuid.UUID{uuid.New()}))

	moved := address
	moved.PostalCode = "560002"
	require.NotEqual(t, base, Fingerprint(customerID, storeID, []catalog.Item{{ProductID: a, Quantity: 1}}, moved, nil))
}

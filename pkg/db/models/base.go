package models

import "github.com/google/uuid"

// ensureID assigns a fresh v4 id when the caller left it empty. Ids are
// generated in Go so the schema works on both Postgres and sqlite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&Store{},
		&StorePaymentAccount{},
		&Product{},
		&ProductTag{},
		&CollectionProduct{},
		&Offer{},
		&ShippingRule{},
		&ProductShippingRule{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
		&CheckoutAttempt{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

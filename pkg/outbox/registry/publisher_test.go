package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	"github.com/kupilikula/rocketshop-market-backend/pkg/outbox"
	"github.com/kupilikula/rocketshop-market-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	orderID := uuid.New()
	event := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: mustEnvelope(t, mustMarshal(t, payloads.OrderCreatedEvent{
			OrderID: orderID,
			StoreID: uuid.New(),
			Total:   "522.00",
		})),
	}

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	require.Equal(t, "orders-topic", resolved.Descriptor.Topic)

	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	require.Equal(t, orderID, payload.OrderID)
	require.Equal(t, "522.00", payload.Total)
	require.NotEmpty(t, resolved.Envelope.EventID)
	require.False(t, resolved.Envelope.OccurredAt.IsZero())
}

func TestEventRegistryResolveRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("order_shipped"),
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.OutboxAggregateType("store"),
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"broken envelope": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			var nonRetry NonRetryableError
			require.True(t, errors.As(err, &nonRetry))
		})
	}
}

func TestResolvedEventRouting(t *testing.T) {
	reg := newTestEventRegistry(t)
	storeID := uuid.New()
	event := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, mustMarshal(t, payloads.OrderCreatedEvent{StoreID: storeID})),
	}
	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	require.Equal(t, storeID.String(), resolved.OrderingKey(event))

	attrs := resolved.Attributes(event)
	require.Equal(t, storeID.String(), attrs["store_id"])
	require.Equal(t, "1", attrs["schema_version"])
	require.Equal(t, event.AggregateID.String(), attrs["aggregate_id"])

	noStore := event
	noStore.Payload = mustEnvelope(t, []byte(`{"orderId":"`+uuid.NewString()+`"}`))
	resolved, err = reg.Resolve(noStore)
	require.NoError(t, err)
	require.Equal(t, event.AggregateID.String(), resolved.OrderingKey(noStore))
	require.NotContains(t, resolved.Attributes(noStore), "store_id")
}

func TestNewRegistryRejectsBadDescriptors(t *testing.T) {
	desc := EventDescriptor{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Topic: "t", NewPayload: func() any { return &payloads.OrderCreatedEvent{} }}
	_, err := newRegistry(desc, desc)
	require.ErrorContains(t, err, "duplicate")

	incomplete := desc
	incomplete.Topic = ""
	_, err = newRegistry(incomplete)
	require.ErrorContains(t, err, "incomplete")
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)

	reg := newTestEventRegistry(t)
	require.Equal(t, []string{"orders-topic"}, reg.Topics())
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	require.NoError(t, err)
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	require.NoError(t, err)
	return data
}

// Package registry maps outbox event types to their topic and payload schema.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	"github.com/kupilikula/rocketshop-market-backend/pkg/outbox"
	"github.com/kupilikula/rocketshop-market-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	NewPayload    func() any
}

// Routed is implemented by payloads that pick their own ordering key and
// add message attributes subscribers filter on.
type Routed interface {
	OrderingKey() string
	RoutingAttributes() map[string]string
}

// ResolvedEvent is a decoded outbox row ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// OrderingKey is the payload's key when it has one, else the aggregate id.
func (r *ResolvedEvent) OrderingKey(event models.OutboxEvent) string {
	if routed, ok := r.Payload.(Routed); ok {
		if key := routed.OrderingKey(); key != "" {
			return key
		}
	}
	return event.AggregateID.String()
}

// Attributes are the Pub/Sub message attributes for event.
func (r *ResolvedEvent) Attributes(event models.OutboxEvent) map[string]string {
	attrs := map[string]string{
		"event_id":       r.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"schema_version": strconv.Itoa(r.Envelope.Version),
		"occurred_at":    r.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if routed, ok := r.Payload.(Routed); ok {
		for k, v := range routed.RoutingAttributes() {
			attrs[k] = v
		}
	}
	return attrs
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row the relay should dead-letter immediately.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps err to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	return newRegistry(EventDescriptor{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		Topic:         cfg.OrdersTopic,
		NewPayload:    func() any { return &payloads.OrderCreatedEvent{} },
	})
}

func newRegistry(descriptors ...EventDescriptor) (*EventRegistry, error) {
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		if desc.NewPayload == nil || desc.Topic == "" {
			return nil, fmt.Errorf("descriptor for %s is incomplete", desc.EventType)
		}
		if _, dup := reg.entries[desc.EventType]; dup {
			return nil, fmt.Errorf("duplicate descriptor for %s", desc.EventType)
		}
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Topics lists the distinct topics, sorted.
func (r *EventRegistry) Topics() []string {
	seen := map[string]bool{}
	var topics []string
	for _, desc := range r.entries {
		if !seen[desc.Topic] {
			seen[desc.Topic] = true
			topics = append(topics, desc.Topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// Resolve validates the row and decodes its typed payload. Every error it
// returns is a NonRetryableError: retrying a malformed row cannot fix it.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.NewPayload()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

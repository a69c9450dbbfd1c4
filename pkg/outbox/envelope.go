package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentEnvelopeVersion is stamped on events that do not pick a version.
const CurrentEnvelopeVersion = 1

// ErrEmptyPayload is returned when an envelope carries no data.
var ErrEmptyPayload = errors.New("envelope has no data")

// ActorRef identifies the customer whose action produced the event.
type ActorRef struct {
	CustomerID uuid.UUID  `json:"customerId"`
	StoreID    *uuid.UUID `json:"storeId,omitempty"`
}

// PayloadEnvelope is what outbox_events.payload_json holds. EventID equals
// the row id so consumers can dedupe on it.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload and rejects envelopes with no data.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, ErrEmptyPayload
	}
	return envelope, nil
}

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/pkg/db/dbtest"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db/models"
	"github.com/kupilikula/rocketshop-market-backend/pkg/enums"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
)

func emitOrderCreated(t *testing.T, db *gorm.DB, svc *Service, orderID uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          map[string]string{"orderId": orderID.String()},
		})
	}))
}

func TestEmitWritesEnvelope(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), logger.Nop())
	orderID := uuid.New()
	emitOrderCreated(t, db, svc, orderID)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, orderID, rows[0].AggregateID)
	require.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, CurrentEnvelopeVersion, envelope.Version)
	require.Equal(t, rows[0].ID.String(), envelope.EventID)
	require.JSONEq(t, `{"orderId":"`+orderID.String()+`"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return errors.New("gateway down")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
}

func TestPublishLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	emitOrderCreated(t, db, svc, uuid.New())
	emitOrderCreated(t, db, svc, uuid.New())

	var fetched []models.OutboxEvent
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, fetched, 2)

	require.NoError(t, repo.MarkPublishedTx(db, fetched[0].ID))
	require.NoError(t, repo.MarkFailedTx(db, fetched[1].ID, errors.New("deadline exceeded")))

	var failed models.OutboxEvent
	require.NoError(t, db.First(&failed, "id = ?", fetched[1].ID).Error)
	require.Equal(t, 1, failed.AttemptCount)
	require.Equal(t, "deadline exceeded", *failed.LastError)

	require.NoError(t, repo.MarkTerminalTx(db, failed.ID, errors.New("gave up"), 3))
	pending, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestPrunePublished(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-60 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	for _, published := range []*time.Time{&old, &recent, nil} {
		require.NoError(t, db.Create(&models.OutboxEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			PublishedAt:   published,
		}).Error)
	}

	deleted, err := repo.PrunePublished(context.Background(), now.Add(-30*24*time.Hour), 100)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func deadLetter(t *testing.T, db *gorm.DB, event models.OutboxEvent, message string) {
	t.Helper()
	require.NoError(t, NewDLQRepository(db).InsertTx(db, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &message,
		AttemptCount:  event.AttemptCount,
	}))
}

func TestDLQInsertTruncates(t *testing.T) {
	db := dbtest.Open(t)
	event := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	deadLetter(t, db, event, strings.Repeat("é", maxLastErrorLen))

	var entry models.OutboxDLQ
	require.NoError(t, db.First(&entry, "event_id = ?", event.ID).Error)
	require.LessOrEqual(t, len(*entry.ErrorMessage), maxLastErrorLen)
	require.True(t, utf8.ValidString(*entry.ErrorMessage))
}

func TestRequeueRestoresDeadLetteredEvent(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	emitOrderCreated(t, db, NewService(repo, nil), uuid.New())

	var event models.OutboxEvent
	require.NoError(t, db.First(&event).Error)
	require.NoError(t, repo.MarkTerminalTx(db, event.ID, errors.New("topic missing"), 10))
	deadLetter(t, db, event, "topic missing")

	dlq := NewDLQRepository(db)
	require.NoError(t, dlq.Requeue(context.Background(), event.ID))

	pending, err := repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Zero(t, pending[0].AttemptCount)
	require.Nil(t, pending[0].LastError)

	var remaining int64
	require.NoError(t, db.Model(&models.OutboxDLQ{}).Count(&remaining).Error)
	require.Zero(t, remaining)

	require.ErrorIs(t, dlq.Requeue(context.Background(), event.ID), ErrNotDeadLettered)
}

func TestEmitRejectsIncompleteEvents(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	for name, event := range map[string]DomainEvent{
		"no type":      {AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Data: 1},
		"no aggregate": {EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Data: 1},
		"no data":      {EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New()},
	} {
		t.Run(name, func(t *testing.T) {
			require.Error(t, svc.Emit(context.Background(), db, event))
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"version":1,"data":null}`))
	require.ErrorIs(t, err, ErrEmptyPayload)
	_, err = DecodeEnvelope([]byte(`{`))
	require.Error(t, err)

	env, err := DecodeEnvelope([]byte(`{"version":2,"eventId":"e-1","data":{"a":1}}`))
	require.NoError(t, err)
	require.Equal(t, 2, env.Version)
	require.JSONEq(t, `{"a":1}`, string(env.Data))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	require.Equal(t, "ab", truncate("abc", 2))
	require.Equal(t, "a", truncate("aé", 2))
	require.Equal(t, "short", truncate("short", 10))
}

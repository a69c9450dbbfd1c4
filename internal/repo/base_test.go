package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kupilikula/rocketshop-market-backend/pkg/db/dbtest"
)

type ctxKey struct{}

func TestBaseDB_BindsContext(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	withCtx := base.DB(ctx)
	require.NotNil(t, withCtx.Statement)
	require.Equal(t, ctx, withCtx.Statement.Context)

	require.Same(t, db, base.DB(nil))
}

func TestBaseBind_UsesTransaction(t *testing.T) {
	db := dbtest.Open(t)
	tx := db.Begin()
	t.Cleanup(func() { tx.Rollback() })

	bound := NewBase(db).Bind(tx)
	require.Same(t, tx, bound.DB(nil))
}

type widget struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Weight int
}

func TestFindInSpansChunks(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.AutoMigrate(&widget{}))

	ids := make([]uuid.UUID, maxInParams+5)
	rows := make([]widget, len(ids))
	for i := range ids {
		ids[i] = uuid.New()
		rows[i] = widget{ID: ids[i], Weight: i}
	}
	require.NoError(t, db.CreateInBatches(rows, 200).Error)

	got, err := FindIn[widget](context.Background(), NewBase(db), "id", ids)
	require.NoError(t, err)
	require.Len(t, got, len(ids))

	odd := func(q *gorm.DB) *gorm.DB { return q.Where("weight % 2 = 1") }
	got, err = FindIn[widget](context.Background(), NewBase(db), "id", ids[:10], odd)
	require.NoError(t, err)
	require.Len(t, got, 5)

	got, err = FindIn[widget](context.Background(), NewBase(db), "id", nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

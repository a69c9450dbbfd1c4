// Package repo holds the pieces shared by the gorm repositories.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxInParams keeps IN lists well under the postgres bind parameter limit.
const maxInParams = 1000

// Base carries either the pooled connection or an open transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the handle to ctx. A nil ctx yields the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a Base whose statements run on tx.
func (b Base) Bind(tx *gorm.DB) Base {
	return Base{db: tx}
}

// FindIn loads every T whose column is in ids, issuing one query per chunk
// of maxInParams ids. Scopes are applied to each chunk's query.
func FindIn[T any](ctx context.Context, b Base, column string, ids []uuid.UUID, scopes ...func(*gorm.DB) *gorm.DB) ([]T, error) {
	var out []T
	for len(ids) > 0 {
		chunk := ids[:min(len(ids), maxInParams)]
		ids = ids[len(chunk):]

		var rows []T
		if err := b.DB(ctx).Scopes(scopes...).Where(column+" IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

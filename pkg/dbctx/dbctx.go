// Package dbctx carries a gorm transaction through the context so
// writes spanning modules can share one atomic unit.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

type ctxKey struct{}

// With returns a context carrying the transaction handle
func With(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From returns the transaction carried by ctx, or fallback when the
// context carries none.
func From(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(ctxKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return fallback
}

package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context pairs a request context with an optional open transaction.
// Repos fall back to their own handle when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

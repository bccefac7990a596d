package storage

import (
	"context"

	"liquidityBuilder/internal/model"
)

// Sink receives token records produced by a catalog sync.
type Sink interface {
	PutTokenBatch(ctx context.Context, tokens []model.Token) error
}

package ports

import (
	"context"

	"preorder/internal/core/domain/model/basket"
)

// BasketSessionStore keeps the last basket snapshot of each owner so that a
// basket survives process restarts.
type BasketSessionStore interface {
	// Load returns the stored snapshot; found is false when none exists.
	Load(ctx context.Context, ownerID string) (snapshot basket.Basket, found bool, err error)

	Save(ctx context.Context, snapshot basket.Basket) error

	Delete(ctx context.Context, ownerID string) error
}

package port

import (
	"context"

	"github.com/rl1809/voice-inventory/internal/core/domain"
)

type InventoryRepository interface {
	// Find returns nil, nil when no item has the canonical name
	Find(ctx context.Context, name string) (*domain.Item, error)

	// Insert persists a new item and returns it as stored
	Insert(ctx context.Context, item domain.Item) (domain.Item, error)

	// Update applies the patch, returns false if the item does not exist
	Update(ctx context.Context, name string, patch domain.ItemPatch) (bool, error)

	// Delete removes the item, returns false if it did not exist
	Delete(ctx context.Context, name string) (bool, error)

	// ListAll returns every item ordered by canonical name
	ListAll(ctx context.Context) ([]domain.Item, error)
}

type TransactionLog interface {
	// Append records a transaction
	Append(ctx context.Context, tx domain.Transaction) error

	// Recent returns up to limit transactions, newest first
	Recent(ctx context.Context, limit int) ([]domain.Transaction, error)
}

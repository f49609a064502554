package lots

import (
	"context"

	"lotledger/internal/core/id"
)

// Repository is the lot persistence contract.
//
// Methods suffixed ForUpdate lock the returned rows until the surrounding
// transaction ends.
type Repository interface {
	Create(ctx context.Context, lot *Lot) error

	// CreateBatch persists many lots at once. It must run inside a transaction.
	CreateBatch(ctx context.Context, batch []*Lot) error

	// GetByID returns apperror NotFound when the lot does not exist.
	GetByID(ctx context.Context, lotID id.ID) (*Lot, error)

	// ListAvailableForUpdate returns lots with current_quantity > 0 ordered by
	// arrival ascending, then id ascending.
	ListAvailableForUpdate(ctx context.Context, productID id.ID) ([]*Lot, error)

	// ListByProduct returns every lot of the product, including empty ones.
	ListByProduct(ctx context.Context, productID id.ID) ([]*Lot, error)

	// LatestForUpdate returns the most recently created lot of the product,
	// or apperror NotFound.
	LatestForUpdate(ctx context.Context, productID id.ID) (*Lot, error)

	// Decrement subtracts amount only if current_quantity >= amount and
	// returns the new quantity. A failed guard yields InsufficientLotQuantity.
	Decrement(ctx context.Context, lotID id.ID, amount int64) (int64, error)

	// Increment adds amount without an upper bound and returns the new quantity.
	Increment(ctx context.Context, lotID id.ID, amount int64) (int64, error)
}

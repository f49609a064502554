package sales

import (
	"context"

	"lotledger/internal/core/id"
)

// Repository is the sale persistence contract.
type Repository interface {
	// Create inserts the sale header only.
	Create(ctx context.Context, s *Sale) error

	// Update rewrites header fields.
	Update(ctx context.Context, s *Sale) error

	// Delete removes the sale, its lines and their consumption rows.
	Delete(ctx context.Context, saleID id.ID) error

	// GetByID loads the sale with lines and draws, or apperror NotFound.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetForUpdate is GetByID with the header row locked.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	// SaveLines inserts s.Lines and every line's draws.
	SaveLines(ctx context.Context, s *Sale) error

	// DeleteLines removes all lines of the sale and their consumption rows.
	DeleteLines(ctx context.Context, saleID id.ID) error

	// DeleteDraws removes consumption rows but keeps the lines.
	DeleteDraws(ctx context.Context, saleID id.ID) error

	// List returns sale headers, newest first.
	List(ctx context.Context, f ListFilter) ([]*Sale, error)

	// ReferencesProduct reports whether any line of any sale, whatever its
	// status, is for the product.
	ReferencesProduct(ctx context.Context, productID id.ID) (bool, error)
}

// ReturnLookup answers whether returns exist for a sale. The return
// repository implements it.
type ReturnLookup interface {
	HasReturns(ctx context.Context, saleID id.ID) (bool, error)
}

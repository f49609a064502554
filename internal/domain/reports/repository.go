package reports

import (
	"context"
	"time"

	"lotledger/internal/core/types"
)

// Repository defines report data access interface.
type Repository interface {
	// ProductSales aggregates lines of completed sales dated in [from, to).
	ProductSales(ctx context.Context, from, to time.Time) ([]ProductSales, error)

	// StockValue is the sum of current quantity times unit cost over the
	// lots of active products.
	StockValue(ctx context.Context) (types.Money, error)
}

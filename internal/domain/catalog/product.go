// Package catalog is the read side of the product registry used by the ledger.
// Products never store quantities; stock is always derived from lots.
package catalog

import (
	"context"
	"strings"
	"time"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
)

// Product is a sellable item.
type Product struct {
	ID              id.ID        `db:"id" json:"id"`
	Name            string       `db:"name" json:"name"`
	SalePrice       *types.Money `db:"sale_price" json:"salePrice"`
	Active          bool         `db:"active" json:"active"`
	SupplierID      *id.ID       `db:"supplier_id" json:"supplierId,omitempty"`
	LeadTimeDays    int          `db:"lead_time_days" json:"leadTimeDays"`
	MinCoverageDays int          `db:"min_coverage_days" json:"minCoverageDays"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updatedAt"`
}

// NewProduct creates an active product with the given price (nil means unpriced).
func NewProduct(name string, price *types.Money) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:        id.New(),
		Name:      name,
		SalePrice: price,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks product fields.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("product name is required")
	}
	if p.SalePrice != nil && p.SalePrice.IsNegative() {
		return apperror.NewValidation("sale price cannot be negative").
			WithDetail("product_id", p.ID.String())
	}
	if p.LeadTimeDays < 0 || p.MinCoverageDays < 0 {
		return apperror.NewValidation("replenishment parameters cannot be negative")
	}
	return nil
}

// Priced reports whether the product has a sale price.
func (p *Product) Priced() bool {
	return p.SalePrice != nil
}

// Price returns the sale price or zero when unpriced.
func (p *Product) Price() types.Money {
	if p.SalePrice == nil {
		return types.Zero()
	}
	return *p.SalePrice
}

// CheckSellable verifies the product can appear on a sale line. A paused
// product is never sellable; gift lines only skip the price requirement.
func (p *Product) CheckSellable(gift bool) error {
	if !p.Active || (!gift && !p.Priced()) {
		return apperror.NewProductUnavailable(p.ID.String())
	}
	return nil
}

// Repository is the product persistence contract.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error

	// GetByID returns apperror NotFound when the product does not exist.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	List(ctx context.Context) ([]*Product, error)

	// Delete removes the product and cascades to its lots. It returns
	// apperror NotFound when the product does not exist.
	Delete(ctx context.Context, productID id.ID) error
}

// Lookup resolves a product referenced by a sale line, translating a missing
// row into ProductNotFound.
func Lookup(ctx context.Context, repo Repository, productID id.ID) (*Product, error) {
	p, err := repo.GetByID(ctx, productID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewProductNotFound(productID.String())
		}
		return nil, err
	}
	return p, nil
}
